package chi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/luminehq/lumine/internal/domain"
	"github.com/luminehq/lumine/internal/metrics"
)

// relayState tracks progress through a single streamed response.
type relayState int

const (
	stateIdle relayState = iota
	stateContextSent
	stateStreaming
	stateDone
	stateErrored
)

const doneMarker = "[DONE]"

// StreamRelay reframes an upstream chat-completion SSE stream onto the
// outbound wire protocol. The context event always goes out first, then
// one token event per non-empty delta, then a [DONE] terminator owned by
// the relay itself. Upstream chunk boundaries carry no meaning: a data
// line may arrive split across reads and is reassembled before parsing.
type StreamRelay struct {
	logger *zap.Logger
	state  relayState
}

// NewStreamRelay creates a relay for one request.
func NewStreamRelay(logger *zap.Logger) *StreamRelay {
	return &StreamRelay{logger: logger, state: stateIdle}
}

// upstreamChunk is the subset of the provider's delta frame the relay reads.
type upstreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Run relays upstream onto w until the upstream ends or the client goes
// away. The upstream reader is closed on every exit path; client
// disconnect is observed as a write error and as ctx cancellation, which
// also cancels the upstream request.
func (sr *StreamRelay) Run(ctx context.Context, w http.ResponseWriter, upstream io.ReadCloser, docs []domain.Document) {
	defer func() { _ = upstream.Close() }()

	flusher, ok := w.(http.Flusher)
	if !ok {
		sr.state = stateErrored
		sr.logger.Error("Response writer does not support flushing")
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	id := "chatcmpl-" + uuid.NewString()

	if err := sr.writeEvent(w, flusher, domain.ContextEvent(docs, id)); err != nil {
		sr.state = stateErrored
		return
	}
	sr.state = stateContextSent

	var (
		carry    string
		doneSent bool
		buf      = make([]byte, 4096)
	)

	for {
		if ctx.Err() != nil {
			sr.state = stateErrored
			return
		}

		n, readErr := upstream.Read(buf)
		if n > 0 {
			carry += string(buf[:n])
			lines := strings.Split(carry, "\n")
			carry = lines[len(lines)-1]
			for _, line := range lines[:len(lines)-1] {
				done, err := sr.handleLine(w, flusher, line, id)
				if err != nil {
					sr.state = stateErrored
					return
				}
				doneSent = doneSent || done
			}
		}
		if readErr != nil {
			if readErr != io.EOF {
				sr.logger.Warn("Upstream stream read failed", zap.Error(readErr))
			}
			break
		}
	}

	// A final line may arrive without a trailing newline.
	if !doneSent && strings.TrimSpace(carry) != "" {
		done, err := sr.handleLine(w, flusher, carry, id)
		if err != nil {
			sr.state = stateErrored
			return
		}
		doneSent = doneSent || done
	}

	if !doneSent {
		if err := sr.writeRaw(w, flusher, doneMarker); err != nil {
			sr.state = stateErrored
			return
		}
	}
	sr.state = stateDone
}

// handleLine processes one complete upstream line. Returns done=true once
// the terminator has been relayed.
func (sr *StreamRelay) handleLine(w http.ResponseWriter, flusher http.Flusher, line, id string) (bool, error) {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" {
		return false, nil
	}

	if !strings.HasPrefix(line, "data: ") {
		sr.logger.Debug("Discarding non-data stream line", zap.String("line", line))
		return false, nil
	}

	payload := strings.TrimPrefix(line, "data: ")
	if payload == doneMarker {
		return true, sr.writeRaw(w, flusher, doneMarker)
	}

	var chunk upstreamChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		sr.logger.Debug("Skipping unparseable stream line", zap.Error(err))
		return false, nil
	}

	if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
		return false, nil
	}

	sr.state = stateStreaming
	return false, sr.writeEvent(w, flusher, domain.TokenEvent(chunk.Choices[0].Delta.Content, id))
}

// writeEvent marshals one outbound frame and flushes it before the next
// upstream read, so slow clients apply backpressure.
func (sr *StreamRelay) writeEvent(w http.ResponseWriter, flusher http.Flusher, ev domain.StreamEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal stream event: %w", err)
	}
	return sr.writeRaw(w, flusher, string(payload))
}

func (sr *StreamRelay) writeRaw(w http.ResponseWriter, flusher http.Flusher, payload string) error {
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("write stream frame: %w", err)
	}
	flusher.Flush()
	metrics.StreamedFramesTotal.Inc()
	return nil
}
