package briefing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/young1lin/deepdive/internal/llm"
	"github.com/young1lin/deepdive/internal/models"
	"github.com/young1lin/deepdive/pkg/logger"
)

// DateLayout renders dates like "March 05, 2025"
const DateLayout = "January 02, 2006"

// ErrNoResults is returned when asked to synthesize from an empty result set
var ErrNoResults = errors.New("cannot synthesize a briefing without search results")

// Completer is the language model collaborator
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// Synthesizer turns search results into a cited markdown briefing
type Synthesizer struct {
	completer Completer
	now       func() time.Time
}

// Option configures a Synthesizer
type Option func(*Synthesizer)

// WithClock overrides the clock used for the date in the system prompt
func WithClock(now func() time.Time) Option {
	return func(s *Synthesizer) { s.now = now }
}

// NewSynthesizer creates a synthesizer backed by the given completer
func NewSynthesizer(completer Completer, opts ...Option) *Synthesizer {
	s := &Synthesizer{completer: completer, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize makes exactly one model call and returns its text verbatim.
// Failures are returned as-is; there is no retry.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, results []models.SearchResult) (string, error) {
	if len(results) == 0 {
		return "", ErrNoResults
	}

	req := llm.Request{
		System: BuildSystemPrompt(s.now()),
		User:   BuildUserPrompt(query, BuildSources(results)),
	}

	logger.Debug("synthesizing briefing",
		zap.String("query", query),
		zap.Int("source_count", len(results)),
	)

	text, err := s.completer.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("synthesis failed: %w", err)
	}
	return text, nil
}

// BuildSources renders the numbered source block. Numbering is the 1-based
// position in results.
func BuildSources(results []models.SearchResult) string {
	entries := make([]string, 0, len(results))
	for i, r := range results {
		entries = append(entries, fmt.Sprintf("[%d] %s\nURL: %s\n%s", i+1, r.Title, r.URL, r.Description))
	}
	return strings.Join(entries, "\n\n")
}

// BuildSystemPrompt returns the fixed instructions stamped with the local date of now
func BuildSystemPrompt(now time.Time) string {
	today := now.Local().Format(DateLayout)
	return "You are Deep Dive, a research assistant. Today is " + today + ". " +
		"The user asked a question and you searched the web. " +
		"Synthesize the search results into a clear, well-structured briefing. " +
		"Include inline citations like [1], [2] etc. referencing the sources. " +
		"End with a Sources section listing each numbered source with its URL. " +
		"Be concise but thorough. Use markdown formatting."
}

// BuildUserPrompt returns the single user turn sent to the model
func BuildUserPrompt(query, sources string) string {
	return fmt.Sprintf("Question: %s\n\nSearch results:\n%s", query, sources)
}
