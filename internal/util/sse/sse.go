// internal/util/sse/sse.go
// Helper util untuk menulis SSE (stream laporan per tahun).

package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Stream writes events to one client. Every event is flushed immediately.
type Stream struct {
	w       io.Writer
	flusher http.Flusher
}

// Prepare sets the SSE headers (no-cache, no proxy buffering) and returns the stream.
// ok is false when w cannot flush, and events would only arrive at the end.
func Prepare(w http.ResponseWriter) (s *Stream, ok bool) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no") // Nginx
	flusher, ok := w.(http.Flusher)
	return &Stream{w: w, flusher: flusher}, ok
}

// Event writes one "event:"/"data:" frame. Strings go out as-is, anything else as JSON.
func (s *Stream) Event(event string, v any) error {
	var payload string
	switch data := v.(type) {
	case string:
		payload = data
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("sse marshal %s: %w", event, err)
		}
		payload = string(b)
	}
	if event != "" {
		if _, err := fmt.Fprintf(s.w, "event: %s\n", event); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}
