package storage

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"RoomFM/logger"
	"RoomFM/store"
)

// Exporter builds the admin dataset: request history and balances for every
// room, zipped as CSV files.
type Exporter struct {
	rooms    *store.RoomStore
	requests *store.RequestStore
	bucket   string
}

// NewExporter creates an Exporter uploading to the given bucket.
func NewExporter(rooms *store.RoomStore, requests *store.RequestStore, bucket string) *Exporter {
	return &Exporter{rooms: rooms, requests: requests, bucket: bucket}
}

// BuildArchive collects request history across all rooms into a zip of CSVs.
func (e *Exporter) BuildArchive(ctx context.Context) ([]byte, error) {
	names, err := e.rooms.ListRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	if err := e.writeRequestsCSV(ctx, zw, names); err != nil {
		return nil, err
	}
	if err := e.writeRoomsCSV(ctx, zw, names); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *Exporter) writeRequestsCSV(ctx context.Context, zw *zip.Writer, rooms []string) error {
	f, err := zw.Create("requests.csv")
	if err != nil {
		return fmt.Errorf("failed to create requests.csv: %w", err)
	}

	w := csv.NewWriter(f)
	header := []string{"room", "request_id", "requester", "title", "artist", "song_id", "status", "express", "price_paid", "moderation_score", "created_at"}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, roomName := range rooms {
		history, err := e.requests.HistoryRequests(ctx, roomName, 0)
		if err != nil {
			return fmt.Errorf("failed to load history for %s: %w", roomName, err)
		}
		for _, req := range history {
			score := ""
			if req.Moderation != nil {
				score = strconv.Itoa(req.Moderation.Score)
			}
			row := []string{
				roomName,
				req.ID,
				req.Requester,
				req.Track.Title,
				req.Track.Artist,
				req.Track.SongID,
				string(req.Status),
				strconv.FormatBool(req.Express),
				strconv.Itoa(req.PricePaid),
				score,
				req.CreatedAt.UTC().Format(time.RFC3339),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}

	w.Flush()
	return w.Error()
}

func (e *Exporter) writeRoomsCSV(ctx context.Context, zw *zip.Writer, rooms []string) error {
	f, err := zw.Create("rooms.csv")
	if err != nil {
		return fmt.Errorf("failed to create rooms.csv: %w", err)
	}

	w := csv.NewWriter(f)
	header := []string{"room", "host", "moderation_enabled", "ai_moderation", "strictness", "request_price", "pin_price", "created_at"}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, roomName := range rooms {
		room, err := e.rooms.GetRoom(ctx, roomName)
		if err != nil {
			continue
		}
		row := []string{
			room.Name,
			room.Host.Username,
			strconv.FormatBool(room.Settings.ModerationEnabled),
			strconv.FormatBool(room.Settings.AIModeration.Enabled),
			room.Settings.AIModeration.Strictness,
			strconv.Itoa(room.Settings.RequestPrice),
			strconv.Itoa(room.Settings.PinPrice),
			room.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// Export builds the archive, uploads it and returns a presigned link valid
// for 24 hours.
func (e *Exporter) Export(ctx context.Context) (string, string, error) {
	archive, err := e.BuildArchive(ctx)
	if err != nil {
		return "", "", err
	}

	objectName := fmt.Sprintf("exports/requests-%s.zip", time.Now().UTC().Format("20060102-150405"))
	if _, err := Upload(ctx, e.bucket, objectName, bytes.NewReader(archive), int64(len(archive)), "application/zip"); err != nil {
		return "", "", err
	}

	url, err := PresignedURL(ctx, e.bucket, objectName, 24*time.Hour)
	if err != nil {
		return "", "", err
	}

	logger.Info("Dataset exported",
		logger.String("object", objectName),
		logger.Int("bytes", len(archive)))
	return objectName, url, nil
}
