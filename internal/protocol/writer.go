package protocol

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/young1lin/deepdive/internal/models"
)

type flusher interface {
	Flush() error
}

// Writer writes one JSON event per line and flushes after each
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter creates a new event writer
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Emit writes a single event
func (w *Writer) Emit(event models.OutboundEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.Type, err)
	}
	data = append(data, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.w.Write(data); err != nil {
		return fmt.Errorf("failed to write %s event: %w", event.Type, err)
	}
	if f, ok := w.w.(flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("failed to flush %s event: %w", event.Type, err)
		}
	}
	return nil
}
