package sse

import (
	"fmt"
	"net/http"
	"time"
)

// KeepAlive is the interval between comment frames on an idle stream.
var KeepAlive = 30 * time.Second

// Serve streams first and then the client's events to w until a Last
// event, the client is dropped, or the request ends. c must already be
// registered so that no event between reading first and streaming is lost.
func Serve(w http.ResponseWriter, r *http.Request, c *Client, first Event) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("sse: streaming not supported by %T", w)
	}
	// Streams outlive the server's write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	write := func(ev Event) {
		_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, ev.Data)
		flusher.Flush()
	}
	write(first)
	if first.Last {
		return nil
	}

	ticker := time.NewTicker(KeepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return nil
		case ev, ok := <-c.Events():
			if !ok {
				return nil
			}
			write(ev)
			if ev.Last {
				return nil
			}
		case <-ticker.C:
			_, _ = fmt.Fprintf(w, ": keepalive %d\n\n", time.Now().Unix())
			flusher.Flush()
		}
	}
}
