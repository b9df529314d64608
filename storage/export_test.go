package storage

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"testing"
	"time"

	"RoomFM/model"
	"RoomFM/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestExporter_BuildArchive(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	rooms := store.NewRoomStore(rdb)
	requests := store.NewRequestStore(rdb)
	ctx := context.Background()

	room := &model.Room{
		Name:      "lounge",
		Host:      model.HostInfo{Username: "host"},
		Settings:  model.RoomSettings{RequestPrice: 30, PinPrice: 10},
		CreatedAt: time.Now(),
	}
	if err := rooms.SaveRoom(ctx, room); err != nil {
		t.Fatalf("SaveRoom failed: %v", err)
	}

	req := &model.TrackRequest{
		ID:        "req-1",
		RoomName:  "lounge",
		Requester: "alice",
		Track:     model.Track{SongID: "s1", Title: "Song", Artist: "Band"},
		Status:    model.RequestStatusApproved,
		PricePaid: 30,
		CreatedAt: time.Now(),
		Moderation: &model.ModerationDecision{
			Score: 88, Approved: true,
		},
	}
	if err := requests.SaveRequest(ctx, req); err != nil {
		t.Fatalf("SaveRequest failed: %v", err)
	}
	if err := requests.RecordHistory(ctx, req); err != nil {
		t.Fatalf("RecordHistory failed: %v", err)
	}

	exporter := NewExporter(rooms, requests, "test-bucket")
	archive, err := exporter.BuildArchive(ctx)
	if err != nil {
		t.Fatalf("BuildArchive failed: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		t.Fatalf("Archive is not a valid zip: %v", err)
	}

	files := map[string][][]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("Failed to open %s: %v", f.Name, err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()

		rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
		if err != nil {
			t.Fatalf("%s is not valid csv: %v", f.Name, err)
		}
		files[f.Name] = rows
	}

	reqRows, ok := files["requests.csv"]
	if !ok {
		t.Fatal("Archive missing requests.csv")
	}
	if len(reqRows) != 2 {
		t.Fatalf("Expected header plus one row, got %d rows", len(reqRows))
	}
	row := reqRows[1]
	if row[0] != "lounge" || row[1] != "req-1" || row[2] != "alice" || row[6] != "approved" || row[9] != "88" {
		t.Errorf("Unexpected request row: %v", row)
	}

	roomRows, ok := files["rooms.csv"]
	if !ok {
		t.Fatal("Archive missing rooms.csv")
	}
	if len(roomRows) != 2 || roomRows[1][0] != "lounge" || roomRows[1][1] != "host" {
		t.Errorf("Unexpected room rows: %v", roomRows)
	}
}
