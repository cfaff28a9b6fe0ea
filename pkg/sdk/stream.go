package lumine

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Stream decodes the service's SSE wire into events. Recv returns io.EOF
// after the [DONE] terminator or when the connection ends.
type Stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

func newStream(body io.ReadCloser) *Stream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Stream{body: body, scanner: scanner}
}

// Recv returns the next event. Lines that are not data frames (comments,
// keepalives) are skipped.
func (s *Stream) Recv() (StreamEvent, error) {
	if s.done {
		return StreamEvent{}, io.EOF
	}

	for s.scanner.Scan() {
		line := strings.TrimRight(s.scanner.Text(), "\r")
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			s.done = true
			return StreamEvent{}, io.EOF
		}

		var ev StreamEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return StreamEvent{}, fmt.Errorf("decode stream event: %w", err)
		}
		return ev, nil
	}

	if err := s.scanner.Err(); err != nil {
		return StreamEvent{}, fmt.Errorf("read stream: %w", err)
	}
	s.done = true
	return StreamEvent{}, io.EOF
}

// Close releases the underlying connection.
func (s *Stream) Close() error {
	return s.body.Close()
}
