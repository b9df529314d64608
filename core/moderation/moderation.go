package moderation

import (
	"context"
	"errors"

	"RoomFM/logger"
	"RoomFM/model"
)

// ErrScorerUnavailable is returned when the scoring backend cannot be
// reached or produces unusable output.
var ErrScorerUnavailable = errors.New("moderation scorer unavailable")

// Strictness thresholds. A request auto-approves when its score meets the
// room's threshold; anything below stays pending for the host.
const (
	ThresholdStrict = 85
	ThresholdMedium = 70
	ThresholdEasy   = 50
)

// Threshold maps a strictness level to its auto-approval score. Unknown
// levels fall back to medium.
func Threshold(strictness string) int {
	switch strictness {
	case model.StrictnessStrict:
		return ThresholdStrict
	case model.StrictnessMedium:
		return ThresholdMedium
	case model.StrictnessEasy:
		return ThresholdEasy
	default:
		return ThresholdMedium
	}
}

// ScoreRequest carries one track and the room context it is judged against.
type ScoreRequest struct {
	Track           model.Track
	RoomDescription string
}

// Scorer rates how well a track fits a room, 0 to 100.
type Scorer interface {
	Score(ctx context.Context, req ScoreRequest) (int, string, error)
}

// Moderator turns scorer output into moderation decisions.
type Moderator struct {
	scorer Scorer
}

// NewModerator creates a Moderator over the given scorer.
func NewModerator(scorer Scorer) *Moderator {
	return &Moderator{scorer: scorer}
}

// Assess scores the track against the room's moderation settings. Scorer
// failures never block the pipeline: the decision comes back with score 0,
// not approved, carrying the failure as reasoning, which leaves the request
// pending for manual review.
func (m *Moderator) Assess(ctx context.Context, track model.Track, settings model.AIModerationSettings) *model.ModerationDecision {
	score, reasoning, err := m.scorer.Score(ctx, ScoreRequest{
		Track:           track,
		RoomDescription: settings.Description,
	})
	if err != nil {
		logger.Warn("Moderation scoring failed, leaving request pending",
			logger.String("title", track.Title),
			logger.String("artist", track.Artist),
			logger.ErrorField(err))
		return &model.ModerationDecision{
			Score:     0,
			Approved:  false,
			Reasoning: err.Error(),
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	threshold := Threshold(settings.Strictness)
	decision := &model.ModerationDecision{
		Score:     score,
		Approved:  score >= threshold,
		Reasoning: reasoning,
		Attributes: map[string]string{
			"strictness": settings.Strictness,
		},
	}

	logger.Info("Moderation decision",
		logger.String("title", track.Title),
		logger.Int("score", score),
		logger.Int("threshold", threshold),
		logger.Bool("approved", decision.Approved))
	return decision
}
