package protocol

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/young1lin/deepdive/internal/models"
)

func TestWriterWireFormat(t *testing.T) {
	cases := []struct {
		name  string
		event models.OutboundEvent
		want  string
	}{
		{
			name:  "Ready",
			event: models.ReadyEvent(),
			want:  `{"type":"ready"}`,
		},
		{
			name:  "Activity",
			event: models.ActivityEvent("42", "brave_search", "Searching: q"),
			want:  `{"type":"activity","tool":"brave_search","description":"Searching: q","message_id":"42"}`,
		},
		{
			name:  "Response with empty content",
			event: models.ResponseEvent("42", ""),
			want:  `{"type":"response","content":"","message_id":"42","done":true}`,
		},
		{
			name:  "Error",
			event: models.ErrorEvent("42", "boom"),
			want:  `{"type":"error","error":"boom","message_id":"42"}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewWriter(&buf).Emit(tc.event); err != nil {
				t.Fatalf("Emit failed: %v", err)
			}
			if got := buf.String(); got != tc.want+"\n" {
				t.Errorf("Expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestWriterFlushesEachLine(t *testing.T) {
	var buf bytes.Buffer
	bw := bufio.NewWriterSize(&buf, 4096)
	w := NewWriter(bw)

	if err := w.Emit(models.ReadyEvent()); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}

	if buf.String() != "{\"type\":\"ready\"}\n" {
		t.Errorf("Expected event to be flushed through, got %q", buf.String())
	}
}

func TestValidateMessage(t *testing.T) {
	if err := validateMessage([]byte(`{"type":"message","message_id":"1","content":"q"}`)); err != nil {
		t.Errorf("Expected valid message, got %v", err)
	}
	if err := validateMessage([]byte(`{"type":"message","message_id":"","content":"q"}`)); err == nil {
		t.Error("Expected empty message_id to be rejected")
	}
	if err := validateMessage([]byte(`{"type":"message","message_id":"1"}`)); err == nil {
		t.Error("Expected missing content to be rejected")
	}
}
