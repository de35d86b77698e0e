package protocol

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/young1lin/deepdive/internal/models"
	"github.com/young1lin/deepdive/internal/research"
	"github.com/young1lin/deepdive/pkg/logger"
)

const failurePrefix = "Something went wrong: "

// Researcher handles one message to completion
type Researcher interface {
	Research(ctx context.Context, messageID, query string, emit research.Emitter) (research.Outcome, error)
}

// Loop reads newline-delimited JSON messages and writes events back.
// Messages are handled strictly one at a time.
type Loop struct {
	reader     *bufio.Reader
	writer     *Writer
	researcher Researcher
}

// NewLoop creates a protocol loop over the given streams
func NewLoop(in io.Reader, out io.Writer, researcher Researcher) *Loop {
	return &Loop{
		reader:     bufio.NewReader(in),
		writer:     NewWriter(out),
		researcher: researcher,
	}
}

// Run announces readiness and serves messages until shutdown, end of input,
// or context cancellation. Only read and write failures are returned.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.writer.Emit(models.ReadyEvent()); err != nil {
		return err
	}
	logger.Info("Deep Dive ready")

	for {
		if ctx.Err() != nil {
			logger.Info("context cancelled, stopping")
			return nil
		}

		line, readErr := l.reader.ReadString('\n')
		if line != "" {
			stop, err := l.handleLine(ctx, line)
			if err != nil {
				return err
			}
			if stop {
				return nil
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				logger.Info("input closed")
				return nil
			}
			return fmt.Errorf("failed to read input: %w", readErr)
		}
	}
}

// handleLine reports whether the loop should stop
func (l *Loop) handleLine(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}

	msgType, err := messageType([]byte(line))
	if err != nil {
		logger.Debug("dropping malformed line", zap.Error(err))
		return false, nil
	}

	switch msgType {
	case models.MessageTypeShutdown:
		logger.Info("Shutting down")
		return true, nil
	case models.MessageTypeMessage:
		if err := validateMessage([]byte(line)); err != nil {
			logger.Warn("dropping invalid message", zap.Error(err))
			return false, nil
		}
		var msg models.InboundMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			logger.Debug("dropping malformed line", zap.Error(err))
			return false, nil
		}
		return false, l.dispatch(ctx, msg)
	default:
		logger.Debug("ignoring message", zap.String("type", msgType))
		return false, nil
	}
}

// messageType reads the "type" key by its exact name. Struct decoding would
// also accept "Type" or "TYPE".
func messageType(line []byte) (string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil {
		return "", err
	}
	raw, ok := fields["type"]
	if !ok {
		return "", nil
	}
	var msgType string
	if err := json.Unmarshal(raw, &msgType); err != nil {
		return "", fmt.Errorf("type is not a string: %w", err)
	}
	return msgType, nil
}

// dispatch runs one request and always closes it with a response event
func (l *Loop) dispatch(ctx context.Context, msg models.InboundMessage) error {
	log := logger.WithTraceID(uuid.New().String()).With(zap.String("message_id", msg.MessageID))
	start := time.Now()

	log.Info("request received", zap.String("query", msg.Content))

	outcome, err := l.researcher.Research(ctx, msg.MessageID, msg.Content, l.writer)
	if err != nil {
		log.Error("request failed", zap.Error(err))
		if werr := l.writer.Emit(models.ErrorEvent(msg.MessageID, err.Error())); werr != nil {
			return werr
		}
		return l.writer.Emit(models.ResponseEvent(msg.MessageID, failurePrefix+err.Error()))
	}

	if err := l.writer.Emit(models.ResponseEvent(msg.MessageID, outcome.Content)); err != nil {
		return err
	}

	log.Info("request completed",
		zap.String("outcome", string(outcome.Kind)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return nil
}
