package research

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/young1lin/deepdive/internal/metrics"
	"github.com/young1lin/deepdive/internal/models"
	"github.com/young1lin/deepdive/pkg/logger"
)

// NoResultsMessage is returned when the search comes back empty
const NoResultsMessage = "I couldn't find any results for that query. Try rephrasing?"

const synthesizingDescription = "Synthesizing briefing..."

// Kind identifies how a request finished successfully
type Kind string

const (
	KindNoResults Kind = "no_results"
	KindBriefing  Kind = "briefing"
)

// Outcome is the successful result of one request
type Outcome struct {
	Kind    Kind
	Content string
}

// Searcher is the web search collaborator. It reports failures as no results.
type Searcher interface {
	Search(ctx context.Context, query string, count int) []models.SearchResult
}

// Synthesizer turns a non-empty result set into briefing text
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, results []models.SearchResult) (string, error)
}

// Emitter receives activity events while a request is in flight
type Emitter interface {
	Emit(event models.OutboundEvent) error
}

// Orchestrator sequences search and synthesis for one request
type Orchestrator struct {
	searcher    Searcher
	synthesizer Synthesizer
	count       int
	metrics     *metrics.Metrics
}

// NewOrchestrator creates a new orchestrator. count is the number of search
// results to request; zero lets the searcher use its default.
func NewOrchestrator(searcher Searcher, synthesizer Synthesizer, count int, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{
		searcher:    searcher,
		synthesizer: synthesizer,
		count:       count,
		metrics:     m,
	}
}

// Research runs Searching then, if anything was found, Synthesizing.
// It returns the apology text, the briefing, or an error; it never writes
// error or response events itself.
func (o *Orchestrator) Research(ctx context.Context, messageID, query string, emit Emitter) (Outcome, error) {
	log := logger.Named("research").With(zap.String("message_id", messageID))

	if err := emit.Emit(models.ActivityEvent(messageID, models.ToolBraveSearch, "Searching: "+query)); err != nil {
		return o.fail(fmt.Errorf("emit search activity: %w", err))
	}

	start := time.Now()
	results := o.searcher.Search(ctx, query, o.count)
	o.metrics.ObserveStage(metrics.StageSearch, time.Since(start))

	if len(results) == 0 {
		log.Info("no search results", zap.String("query", query))
		o.metrics.ObserveRequest(metrics.OutcomeNoResults)
		return Outcome{Kind: KindNoResults, Content: NoResultsMessage}, nil
	}

	if err := emit.Emit(models.ActivityEvent(messageID, models.ToolThinking, synthesizingDescription)); err != nil {
		return o.fail(fmt.Errorf("emit synthesis activity: %w", err))
	}

	start = time.Now()
	text, err := o.synthesizer.Synthesize(ctx, query, results)
	o.metrics.ObserveStage(metrics.StageSynthesize, time.Since(start))
	if err != nil {
		return o.fail(err)
	}

	log.Info("briefing ready",
		zap.Int("source_count", len(results)),
		zap.Int("length", len(text)),
	)
	o.metrics.ObserveRequest(metrics.OutcomeBriefing)
	return Outcome{Kind: KindBriefing, Content: text}, nil
}

func (o *Orchestrator) fail(err error) (Outcome, error) {
	o.metrics.ObserveRequest(metrics.OutcomeFailed)
	return Outcome{}, err
}
