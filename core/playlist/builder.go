package playlist

import (
	"context"
	"math"
	"strings"

	"RoomFM/logger"
	"RoomFM/model"
)

const maxBuildAttempts = 3

// overAskFactor pads each suggestion round so duplicates and dead catalog
// lookups do not starve the build.
const overAskFactor = 1.5

// SuggestionRequest describes one round of song suggestions.
type SuggestionRequest struct {
	Prompt         string
	Genre          string
	Occasion       string
	Count          int
	ExistingTitles []string
}

// SuggestionResult is one round of suggestions plus the room introduction
// the suggester wrote for the theme.
type SuggestionResult struct {
	Suggestions  []model.Suggestion
	Introduction string
}

// Suggester produces themed song suggestions.
type Suggester interface {
	SuggestSongs(ctx context.Context, req SuggestionRequest) (*SuggestionResult, error)
}

// Resolver turns a title and artist into a playable track.
type Resolver interface {
	Resolve(ctx context.Context, title, artist string) (*model.Track, error)
}

// BuildRequest describes a playlist build.
type BuildRequest struct {
	Prompt      string
	Genre       string
	Occasion    string
	TargetCount int
	// ExcludeTitles are already in the room playlist. They steer the suggester
	// away from repeats; dedup against the playlist itself happens at merge
	// time under the song_id/title+artist key, since a shared bare title can
	// still be a different recording.
	ExcludeTitles []string
}

// BuildResult is a finished playlist build.
type BuildResult struct {
	Tracks       []model.Track
	Introduction string
}

// Builder assembles playlists from suggester output, resolving each
// suggestion against the catalog and deduplicating titles along the way.
type Builder struct {
	suggester Suggester
	resolver  Resolver
}

// NewBuilder creates a Builder over the given collaborators.
func NewBuilder(suggester Suggester, resolver Resolver) *Builder {
	return &Builder{suggester: suggester, resolver: resolver}
}

// Build gathers up to TargetCount resolved tracks. Each round over-asks by
// half to absorb duplicates and unresolvable suggestions, retrying up to
// three times while telling the suggester which titles it already has.
// The result may be shorter than TargetCount when suggestions run dry.
func (b *Builder) Build(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	seen := make(map[string]struct{}, req.TargetCount)

	tracks := make([]model.Track, 0, req.TargetCount)
	introduction := ""

	for attempt := 1; attempt <= maxBuildAttempts && len(tracks) < req.TargetCount; attempt++ {
		need := req.TargetCount - len(tracks)
		ask := int(math.Ceil(float64(need) * overAskFactor))

		result, err := b.suggester.SuggestSongs(ctx, SuggestionRequest{
			Prompt:         req.Prompt,
			Genre:          req.Genre,
			Occasion:       req.Occasion,
			Count:          ask,
			ExistingTitles: collectedTitles(req.ExcludeTitles, tracks),
		})
		if err != nil {
			if attempt == 1 {
				return nil, err
			}
			logger.Warn("Suggestion round failed, keeping partial playlist",
				logger.Int("attempt", attempt),
				logger.ErrorField(err))
			break
		}
		if result.Introduction != "" {
			introduction = result.Introduction
		}

		for _, s := range result.Suggestions {
			if len(tracks) >= req.TargetCount {
				break
			}
			key := titleKey(s.Title)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}

			track, err := b.resolver.Resolve(ctx, s.Title, s.Artist)
			if err != nil {
				logger.Warn("Failed to resolve suggestion",
					logger.String("title", s.Title),
					logger.String("artist", s.Artist),
					logger.ErrorField(err))
				continue
			}

			seen[key] = struct{}{}
			tracks = append(tracks, *track)
		}
	}

	if len(tracks) > req.TargetCount {
		tracks = tracks[:req.TargetCount]
	}
	return &BuildResult{Tracks: tracks, Introduction: introduction}, nil
}

func collectedTitles(exclude []string, tracks []model.Track) []string {
	titles := make([]string, 0, len(exclude)+len(tracks))
	titles = append(titles, exclude...)
	for _, tr := range tracks {
		titles = append(titles, tr.Title)
	}
	return titles
}

func titleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
