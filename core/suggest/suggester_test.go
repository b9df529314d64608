package suggest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"RoomFM/core/playlist"
	"RoomFM/model"
)

func TestParseSuggestions(t *testing.T) {
	content := `titles: Midnight City;Nightcall; Instant Crush
artists: M83;Kavinsky;Daft Punk
introduction: Neon-soaked synthwave for late drives.`

	result, err := ParseSuggestions(content)
	if err != nil {
		t.Fatalf("ParseSuggestions failed: %v", err)
	}
	if len(result.Suggestions) != 3 {
		t.Fatalf("Expected 3 suggestions, got %d", len(result.Suggestions))
	}
	want := []model.Suggestion{
		{Title: "Midnight City", Artist: "M83"},
		{Title: "Nightcall", Artist: "Kavinsky"},
		{Title: "Instant Crush", Artist: "Daft Punk"},
	}
	for i, w := range want {
		if result.Suggestions[i] != w {
			t.Errorf("Suggestion %d: expected %+v, got %+v", i, w, result.Suggestions[i])
		}
	}
	if result.Introduction != "Neon-soaked synthwave for late drives." {
		t.Errorf("Unexpected introduction: %q", result.Introduction)
	}
}

func TestParseSuggestions_MismatchedArtists(t *testing.T) {
	content := `titles: One;Two;Three
artists: Artist A
introduction: Short list.`

	result, err := ParseSuggestions(content)
	if err != nil {
		t.Fatalf("ParseSuggestions failed: %v", err)
	}
	if len(result.Suggestions) != 3 {
		t.Fatalf("Expected 3 suggestions, got %d", len(result.Suggestions))
	}
	if result.Suggestions[0].Artist != "Artist A" {
		t.Errorf("First artist should survive, got %q", result.Suggestions[0].Artist)
	}
	if result.Suggestions[1].Artist != "" || result.Suggestions[2].Artist != "" {
		t.Errorf("Missing artists should be empty, got %+v", result.Suggestions)
	}
}

func TestParseSuggestions_IgnoresChatter(t *testing.T) {
	content := `Sure! Here is your playlist:
Titles: A;B
Artists: X;Y
Introduction: Two songs.
Enjoy!`

	result, err := ParseSuggestions(content)
	if err != nil {
		t.Fatalf("ParseSuggestions failed: %v", err)
	}
	if len(result.Suggestions) != 2 {
		t.Fatalf("Expected 2 suggestions, got %d", len(result.Suggestions))
	}
	if result.Introduction != "Two songs." {
		t.Errorf("Unexpected introduction: %q", result.Introduction)
	}
}

func TestParseSuggestions_NoTitles(t *testing.T) {
	if _, err := ParseSuggestions("I cannot help with that."); err == nil {
		t.Fatal("Expected error for response without titles line")
	}
}

func TestParseSuggestions_EmptyEntriesDropped(t *testing.T) {
	content := `titles: A;;B;
artists: X;;Y;`

	result, err := ParseSuggestions(content)
	if err != nil {
		t.Fatalf("ParseSuggestions failed: %v", err)
	}
	if len(result.Suggestions) != 2 {
		t.Fatalf("Expected 2 suggestions, got %d", len(result.Suggestions))
	}
}

func TestClient_SuggestSongs(t *testing.T) {
	var gotReq model.OpenAIChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Unexpected auth header: %s", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"titles: A;B\nartists: X;Y\nintroduction: ok"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	client := NewClient(&ClientConfig{
		APIBaseURL: server.URL,
		APIKey:     "test-key",
		Model:      "test-model",
	})

	result, err := client.SuggestSongs(context.Background(), playlist.SuggestionRequest{
		Count:          2,
		Prompt:         "rainy evening",
		ExistingTitles: []string{"C"},
	})
	if err != nil {
		t.Fatalf("SuggestSongs failed: %v", err)
	}
	if len(result.Suggestions) != 2 {
		t.Fatalf("Expected 2 suggestions, got %d", len(result.Suggestions))
	}
	if len(gotReq.Messages) != 2 {
		t.Fatalf("Expected system and user messages, got %d", len(gotReq.Messages))
	}
}

func TestClient_UpdateConfig(t *testing.T) {
	reply := []byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"titles: A\nartists: X\nintroduction: ok"},"finish_reason":"stop"}]}`)

	var oldHits, newHits int
	var gotModel string
	oldServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		oldHits++
		w.Write(reply)
	}))
	defer oldServer.Close()
	newServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		newHits++
		var req model.OpenAIChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotModel = req.Model
		w.Write(reply)
	}))
	defer newServer.Close()

	client := NewClient(&ClientConfig{APIBaseURL: oldServer.URL, Model: "old-model"})
	if _, err := client.SuggestSongs(context.Background(), playlist.SuggestionRequest{Count: 1}); err != nil {
		t.Fatalf("SuggestSongs failed: %v", err)
	}

	client.UpdateConfig(&ClientConfig{APIBaseURL: newServer.URL, Model: "new-model"})
	if _, err := client.SuggestSongs(context.Background(), playlist.SuggestionRequest{Count: 1}); err != nil {
		t.Fatalf("SuggestSongs after UpdateConfig failed: %v", err)
	}

	if oldHits != 1 || newHits != 1 {
		t.Errorf("hits = %d old, %d new; want 1 each", oldHits, newHits)
	}
	if gotModel != "new-model" {
		t.Errorf("model = %q, want new-model", gotModel)
	}
}

func TestClient_SuggestSongs_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(&ClientConfig{APIBaseURL: server.URL})
	if _, err := client.SuggestSongs(context.Background(), playlist.SuggestionRequest{Count: 1}); err == nil {
		t.Fatal("Expected error for non-200 response")
	}
}
