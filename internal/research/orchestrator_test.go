package research

import (
	"context"
	"errors"
	"testing"

	"github.com/young1lin/deepdive/internal/metrics"
	"github.com/young1lin/deepdive/internal/models"
)

type fakeSearcher struct {
	results   []models.SearchResult
	gotCount  int
	callCount int
}

func (f *fakeSearcher) Search(_ context.Context, _ string, count int) []models.SearchResult {
	f.callCount++
	f.gotCount = count
	return f.results
}

type fakeSynthesizer struct {
	text    string
	err     error
	calls   int
	results []models.SearchResult
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, _ string, results []models.SearchResult) (string, error) {
	f.calls++
	f.results = results
	return f.text, f.err
}

type recordingEmitter struct {
	events []models.OutboundEvent
	err    error
}

func (r *recordingEmitter) Emit(event models.OutboundEvent) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func TestResearch(t *testing.T) {
	t.Run("Search then synthesize", func(t *testing.T) {
		searcher := &fakeSearcher{results: []models.SearchResult{{Title: "T", URL: "http://x", Description: "D"}}}
		synth := &fakeSynthesizer{text: "Sunny [1]."}
		emitter := &recordingEmitter{}
		o := NewOrchestrator(searcher, synth, 8, metrics.New())

		outcome, err := o.Research(context.Background(), "42", "weather today", emitter)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		if outcome.Kind != KindBriefing || outcome.Content != "Sunny [1]." {
			t.Errorf("Unexpected outcome: %+v", outcome)
		}
		if searcher.gotCount != 8 {
			t.Errorf("Expected count 8, got %d", searcher.gotCount)
		}
		if synth.calls != 1 || len(synth.results) != 1 {
			t.Errorf("Expected one synthesis over 1 result, got %d calls", synth.calls)
		}

		if len(emitter.events) != 2 {
			t.Fatalf("Expected 2 activity events, got %d", len(emitter.events))
		}
		first, second := emitter.events[0], emitter.events[1]
		if first.Type != models.EventTypeActivity || first.Tool != "brave_search" || first.Description != "Searching: weather today" {
			t.Errorf("Unexpected first event: %+v", first)
		}
		if second.Tool != "thinking" || second.Description != "Synthesizing briefing..." {
			t.Errorf("Unexpected second event: %+v", second)
		}
		for _, e := range emitter.events {
			if e.MessageID != "42" {
				t.Errorf("Expected message_id '42', got '%s'", e.MessageID)
			}
		}
	})

	t.Run("No results skips synthesis", func(t *testing.T) {
		searcher := &fakeSearcher{}
		synth := &fakeSynthesizer{text: "should not be used"}
		emitter := &recordingEmitter{}
		o := NewOrchestrator(searcher, synth, 8, nil)

		outcome, err := o.Research(context.Background(), "7", "xyzzy", emitter)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		if outcome.Kind != KindNoResults {
			t.Errorf("Expected no_results outcome, got %s", outcome.Kind)
		}
		if outcome.Content != "I couldn't find any results for that query. Try rephrasing?" {
			t.Errorf("Unexpected apology: %q", outcome.Content)
		}
		if synth.calls != 0 {
			t.Errorf("Expected synthesizer not to be called, got %d calls", synth.calls)
		}
		if len(emitter.events) != 1 || emitter.events[0].Tool != "brave_search" {
			t.Errorf("Expected only the search activity, got %+v", emitter.events)
		}
	})

	t.Run("Synthesis failure propagates", func(t *testing.T) {
		cause := errors.New("overloaded")
		searcher := &fakeSearcher{results: []models.SearchResult{{Title: "T"}}}
		o := NewOrchestrator(searcher, &fakeSynthesizer{err: cause}, 8, nil)

		_, err := o.Research(context.Background(), "1", "q", &recordingEmitter{})
		if !errors.Is(err, cause) {
			t.Errorf("Expected synthesis error, got %v", err)
		}
	})

	t.Run("Emit failure aborts before search", func(t *testing.T) {
		searcher := &fakeSearcher{results: []models.SearchResult{{Title: "T"}}}
		o := NewOrchestrator(searcher, &fakeSynthesizer{}, 8, nil)

		_, err := o.Research(context.Background(), "1", "q", &recordingEmitter{err: errors.New("broken pipe")})
		if err == nil {
			t.Fatal("Expected emit error")
		}
		if searcher.callCount != 0 {
			t.Errorf("Expected no search, got %d calls", searcher.callCount)
		}
	})
}
