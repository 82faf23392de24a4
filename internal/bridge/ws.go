package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/wagiedev/uci-engine-go/internal/errors"
)

// channel upgrades to a WebSocket and answers each call on its own
// goroutine, so a slow search does not hold up the ones behind it. Calls
// without an id are given one. Closing the socket cancels pending calls.
func (s *Server) channel(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("WebSocket upgrade failed", "error", err)

		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxRequestBytes)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var (
		writeMu sync.Mutex
		pending sync.WaitGroup
	)

	send := func(reply Reply) {
		writeMu.Lock()
		defer writeMu.Unlock()

		if err := conn.WriteJSON(reply); err != nil {
			s.log.Debug("WebSocket write failed", "error", err)
		}
	}

	log := s.log.With("remote", r.RemoteAddr)
	log.Debug("Channel opened")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Debug("Channel closed", "error", err)

			break
		}

		var call Call
		if err := json.Unmarshal(data, &call); err != nil {
			send(Reply{Error: &ReplyError{Code: errors.CodeInvalidArgument, Message: "malformed call: " + err.Error()}})

			continue
		}

		if call.ID == "" {
			call.ID = ulid.Make().String()
		}

		pending.Go(func() {
			send(s.dispatcher.Handle(ctx, call))
		})
	}

	cancel()
	pending.Wait()
}
