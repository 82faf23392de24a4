package bridge

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/wagiedev/uci-engine-go/internal/errors"
	"github.com/wagiedev/uci-engine-go/internal/supervisor"
)

// maxRequestBytes bounds a request body or WebSocket message.
const maxRequestBytes = 64 * 1024

// StatsFunc reports supervisor activity for the health endpoint.
type StatsFunc func() supervisor.Stats

// Server serves the HTTP and WebSocket front ends.
type Server struct {
	log        *slog.Logger
	dispatcher *Dispatcher
	stats      StatsFunc
	upgrader   websocket.Upgrader
}

// NewServer creates a server over dispatcher. stats may be nil.
func NewServer(log *slog.Logger, dispatcher *Dispatcher, stats StatsFunc) *Server {
	return &Server{
		log:        log.With("component", "http_bridge"),
		dispatcher: dispatcher,
		stats:      stats,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// Handler returns the router:
//
//	POST /v1/bestmove   one getBestMove call, JSON in and out
//	GET  /v1/channel    WebSocket carrying concurrent method calls
//	GET  /healthz       liveness and supervisor stats
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/v1/bestmove", s.bestMove).Methods(http.MethodPost)
	router.HandleFunc("/v1/channel", s.channel).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.health).Methods(http.MethodGet)

	return router
}

func (s *Server) bestMove(w http.ResponseWriter, r *http.Request) {
	var call Call

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&call); err != nil {
		s.writeJSON(w, http.StatusBadRequest, Reply{Error: &ReplyError{
			Code:    errors.CodeInvalidArgument,
			Message: "malformed request body: " + err.Error(),
		}})

		return
	}

	call.Method = MethodGetBestMove

	reply := s.dispatcher.Handle(r.Context(), call)

	status := http.StatusOK
	if reply.Error != nil {
		status = StatusFor(reply.Error.Code)
	}

	s.writeJSON(w, status, reply)
}

type healthReply struct {
	Status  string `json:"status"`
	Busy    int    `json:"busy"`
	Idle    int    `json:"idle"`
	Spawned int64  `json:"spawned"`
	Reused  int64  `json:"reused"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	reply := healthReply{Status: "ok"}

	if s.stats != nil {
		st := s.stats()
		reply.Busy, reply.Idle, reply.Spawned, reply.Reused = st.Busy, st.Idle, st.Spawned, st.Reused
	}

	s.writeJSON(w, http.StatusOK, reply)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Debug("Failed to write response", "error", err)
	}
}

// StatusFor maps a reply error code to an HTTP status.
func StatusFor(code string) int {
	switch code {
	case errors.CodeInvalidArgument:
		return http.StatusBadRequest
	case errors.CodeNoLegalMove:
		return http.StatusUnprocessableEntity
	case errors.CodeHandshakeTimeout, errors.CodeSearchTimeout:
		return http.StatusGatewayTimeout
	case errors.CodeSpawn, errors.CodeProcessExited:
		return http.StatusBadGateway
	case errors.CodeUnavailable:
		return http.StatusServiceUnavailable
	case errors.CodeCancelled:
		return http.StatusRequestTimeout
	case CodeNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
