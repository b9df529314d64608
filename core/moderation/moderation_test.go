package moderation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"RoomFM/model"
)

type stubScorer struct {
	score     int
	reasoning string
	err       error
}

func (s *stubScorer) Score(context.Context, ScoreRequest) (int, string, error) {
	return s.score, s.reasoning, s.err
}

func TestThreshold(t *testing.T) {
	cases := []struct {
		strictness string
		want       int
	}{
		{model.StrictnessStrict, 85},
		{model.StrictnessMedium, 70},
		{model.StrictnessEasy, 50},
		{"bogus", 70},
		{"", 70},
	}
	for _, c := range cases {
		if got := Threshold(c.strictness); got != c.want {
			t.Errorf("Threshold(%q) = %d, want %d", c.strictness, got, c.want)
		}
	}
}

func TestModerator_Assess(t *testing.T) {
	track := model.Track{Title: "Song", Artist: "Band"}

	t.Run("AtThresholdApproves", func(t *testing.T) {
		m := NewModerator(&stubScorer{score: 70, reasoning: "fits"})
		d := m.Assess(context.Background(), track, model.AIModerationSettings{Strictness: model.StrictnessMedium})
		if !d.Approved {
			t.Errorf("Score equal to threshold must approve, got %+v", d)
		}
	})

	t.Run("BelowThresholdStaysPending", func(t *testing.T) {
		m := NewModerator(&stubScorer{score: 69})
		d := m.Assess(context.Background(), track, model.AIModerationSettings{Strictness: model.StrictnessMedium})
		if d.Approved {
			t.Errorf("Score below threshold must not approve, got %+v", d)
		}
	})

	t.Run("StrictnessChangesOutcome", func(t *testing.T) {
		m := NewModerator(&stubScorer{score: 60})
		easy := m.Assess(context.Background(), track, model.AIModerationSettings{Strictness: model.StrictnessEasy})
		strict := m.Assess(context.Background(), track, model.AIModerationSettings{Strictness: model.StrictnessStrict})
		if !easy.Approved || strict.Approved {
			t.Errorf("Expected easy approve and strict reject, got easy=%v strict=%v", easy.Approved, strict.Approved)
		}
	})

	t.Run("ScorerFailureFailsClosed", func(t *testing.T) {
		m := NewModerator(&stubScorer{err: errors.New("model offline")})
		d := m.Assess(context.Background(), track, model.AIModerationSettings{Strictness: model.StrictnessEasy})
		if d.Approved {
			t.Error("Scorer failure must not approve")
		}
		if d.Score != 0 {
			t.Errorf("Expected score 0 on failure, got %d", d.Score)
		}
		if d.Reasoning == "" {
			t.Error("Failure reasoning must be recorded")
		}
	})

	t.Run("ScoreClamped", func(t *testing.T) {
		m := NewModerator(&stubScorer{score: 300})
		d := m.Assess(context.Background(), track, model.AIModerationSettings{Strictness: model.StrictnessStrict})
		if d.Score != 100 {
			t.Errorf("Expected clamped score 100, got %d", d.Score)
		}
	})
}

func TestLLMScorer_Score(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"` +
			"```json\\n{\\\"score\\\": 82, \\\"reasoning\\\": \\\"good fit\\\"}\\n```" + `"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	scorer := NewLLMScorer(&LLMScorerConfig{APIBaseURL: server.URL, Model: "test"})
	score, reasoning, err := scorer.Score(context.Background(), ScoreRequest{
		Track:           model.Track{Title: "Song", Artist: "Band"},
		RoomDescription: "chill instrumental",
	})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if score != 82 {
		t.Errorf("Expected score 82, got %d", score)
	}
	if reasoning != "good fit" {
		t.Errorf("Unexpected reasoning: %q", reasoning)
	}
}

func TestLLMScorer_Score_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	scorer := NewLLMScorer(&LLMScorerConfig{APIBaseURL: server.URL})
	if _, _, err := scorer.Score(context.Background(), ScoreRequest{}); !errors.Is(err, ErrScorerUnavailable) {
		t.Fatalf("Expected ErrScorerUnavailable, got %v", err)
	}
}

func TestLLMScorer_Score_GarbageVerdict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"I refuse to answer."},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	scorer := NewLLMScorer(&LLMScorerConfig{APIBaseURL: server.URL})
	if _, _, err := scorer.Score(context.Background(), ScoreRequest{}); !errors.Is(err, ErrScorerUnavailable) {
		t.Fatalf("Expected ErrScorerUnavailable for unparseable verdict, got %v", err)
	}
}
