package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MimeLyc/doc-translator/pkg/log"
)

// keepAliveEvery is how many unchanged ticks pass before a comment line is
// sent to keep proxies from closing an idle stream.
const keepAliveEvery = 15

// handleJobStream sends the job summaries as server-sent events whenever
// they change, until the client goes away.
func (s *Server) handleJobStream(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	var (
		last  []byte
		quiet int
	)
	push := func() error {
		payload, err := json.Marshal(s.queue.Summaries())
		if err != nil {
			return err
		}
		switch {
		case last == nil || !bytes.Equal(payload, last):
			last, quiet = payload, 0
			_, err = fmt.Fprintf(w, "data: %s\n\n", payload)
		case quiet+1 >= keepAliveEvery:
			quiet = 0
			_, err = io.WriteString(w, ": keep-alive\n\n")
		default:
			quiet++
			return nil
		}
		if err != nil {
			return err
		}
		return rc.Flush()
	}

	if err := push(); err != nil {
		log.Debug("Job stream closed: %v", err)
		return
	}

	ticker := time.NewTicker(s.streamInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := push(); err != nil {
				log.Debug("Job stream closed: %v", err)
				return
			}
		}
	}
}
