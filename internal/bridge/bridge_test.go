package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/uci-engine-go/internal/config"
	"github.com/wagiedev/uci-engine-go/internal/enginetest"
	"github.com/wagiedev/uci-engine-go/internal/errors"
	"github.com/wagiedev/uci-engine-go/internal/position"
	"github.com/wagiedev/uci-engine-go/internal/session"
	"github.com/wagiedev/uci-engine-go/internal/supervisor"
)

type evaluatorFunc func(ctx context.Context, req session.Request) (*session.Result, error)

func (f evaluatorFunc) Evaluate(ctx context.Context, req session.Request) (*session.Result, error) {
	return f(ctx, req)
}

func ptr[T any](v T) *T { return &v }

func newSupervisor(t *testing.T, mode string) *supervisor.Supervisor {
	t.Helper()

	factory, _ := enginetest.Factory(func() *enginetest.FakeTransport {
		return enginetest.NewFakeTransport(mode)
	})

	s := supervisor.New(&config.Options{
		HandshakeTimeout: time.Second,
		SearchTimeout:    time.Second,
		NewTransport:     factory,
	})
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestDispatcher_Handle(t *testing.T) {
	var got session.Request

	d := NewDispatcher(slog.Default(), evaluatorFunc(func(_ context.Context, req session.Request) (*session.Result, error) {
		got = req

		return &session.Result{Move: "g1f3", Ponder: "g8f6", Depth: req.Depth}, nil
	}))

	reply := d.Handle(context.Background(), Call{ID: "1", Method: MethodGetBestMove, FEN: ptr(position.StartFEN)})
	require.Nil(t, reply.Error)
	require.Equal(t, "1", reply.ID)
	require.Equal(t, "g1f3", reply.Move)
	require.Equal(t, "g8f6", reply.Ponder)
	require.Equal(t, DefaultDepth, got.Depth)
	require.Nil(t, got.Strength)

	reply = d.Handle(context.Background(), Call{Method: MethodGetBestMove, FEN: ptr(position.StartFEN), Depth: ptr(9), Elo: ptr(1500)})
	require.Nil(t, reply.Error)
	require.Equal(t, 9, got.Depth)
	require.Equal(t, &session.StrengthLimit{Elo: 1500}, got.Strength)
}

func TestDispatcher_Errors(t *testing.T) {
	d := NewDispatcher(slog.Default(), newSupervisor(t, enginetest.ModeNoMove))

	tests := []struct {
		name string
		call Call
		code string
	}{
		{name: "unknown method", call: Call{Method: "getWorstMove"}, code: CodeNotImplemented},
		{name: "missing fen", call: Call{Method: MethodGetBestMove}, code: errors.CodeInvalidArgument},
		{name: "empty fen", call: Call{Method: MethodGetBestMove, FEN: ptr("  ")}, code: errors.CodeInvalidArgument},
		{name: "malformed fen", call: Call{Method: MethodGetBestMove, FEN: ptr("not a fen")}, code: errors.CodeInvalidArgument},
		{name: "bad depth", call: Call{Method: MethodGetBestMove, FEN: ptr(position.StartFEN), Depth: ptr(0)}, code: errors.CodeInvalidArgument},
		{name: "no legal move", call: Call{Method: MethodGetBestMove, FEN: ptr(position.StartFEN)}, code: errors.CodeNoLegalMove},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := d.Handle(context.Background(), tt.call)
			require.NotNil(t, reply.Error)
			require.Equal(t, tt.code, reply.Error.Code)
			require.NotEmpty(t, reply.Error.Message)
			require.Empty(t, reply.Move)
		})
	}
}

func TestHTTP_BestMove(t *testing.T) {
	sup := newSupervisor(t, enginetest.ModeNormal)
	srv := httptest.NewServer(NewServer(slog.Default(), NewDispatcher(slog.Default(), sup), sup.Stats).Handler())
	defer srv.Close()

	body := `{"fen":"` + position.StartFEN + `","depth":5}`

	resp, err := http.Post(srv.URL+"/v1/bestmove", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reply Reply
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	require.Equal(t, enginetest.StubBestMove, reply.Move)
	require.Equal(t, 5, reply.Depth)
	require.NotNil(t, reply.ScoreCP)
	require.NotEmpty(t, reply.SessionID)
}

func TestHTTP_ErrorStatus(t *testing.T) {
	sup := newSupervisor(t, enginetest.ModeNormal)
	srv := httptest.NewServer(NewServer(slog.Default(), NewDispatcher(slog.Default(), sup), nil).Handler())
	defer srv.Close()

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "malformed json", body: `{"fen":`, status: http.StatusBadRequest},
		{name: "missing fen", body: `{}`, status: http.StatusBadRequest},
		{name: "negative depth", body: `{"fen":"` + position.StartFEN + `","depth":-1}`, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/v1/bestmove", "application/json", bytes.NewBufferString(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()

			require.Equal(t, tt.status, resp.StatusCode)

			var reply Reply
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
			require.NotNil(t, reply.Error)
			require.Equal(t, errors.CodeInvalidArgument, reply.Error.Code)
		})
	}

	resp, err := http.Get(srv.URL + "/v1/bestmove")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHTTP_Health(t *testing.T) {
	sup := newSupervisor(t, enginetest.ModeNormal)
	srv := httptest.NewServer(NewServer(slog.Default(), NewDispatcher(slog.Default(), sup), sup.Stats).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	var health healthReply
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	require.Equal(t, "ok", health.Status)
	require.Zero(t, health.Busy)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusGatewayTimeout, StatusFor(errors.CodeSearchTimeout))
	assert.Equal(t, http.StatusBadGateway, StatusFor(errors.CodeSpawn))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusFor(errors.CodeNoLegalMove))
	assert.Equal(t, http.StatusServiceUnavailable, StatusFor(errors.CodeUnavailable))
	assert.Equal(t, http.StatusInternalServerError, StatusFor("SOMETHING_ELSE"))
}

func TestChannel_ConcurrentCalls(t *testing.T) {
	release := make(chan struct{})

	d := NewDispatcher(slog.Default(), evaluatorFunc(func(ctx context.Context, req session.Request) (*session.Result, error) {
		// The slow call waits until the fast one has been answered.
		if req.Depth == 20 {
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		return &session.Result{Move: "e2e4", Depth: req.Depth}, nil
	}))

	srv := httptest.NewServer(NewServer(slog.Default(), d, nil).Handler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/v1/channel", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(Call{ID: "slow", Method: MethodGetBestMove, FEN: ptr(position.StartFEN), Depth: ptr(20)}))
	require.NoError(t, conn.WriteJSON(Call{ID: "fast", Method: MethodGetBestMove, FEN: ptr(position.StartFEN), Depth: ptr(1)}))
	require.NoError(t, conn.WriteJSON(Call{Method: "setOption"}))

	var first, second Reply
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.ReadJSON(&second))

	replies := map[string]Reply{first.ID: first, second.ID: second}
	require.Contains(t, replies, "fast")
	require.Equal(t, 1, replies["fast"].Depth)

	for id, reply := range replies {
		if id != "fast" {
			require.NotEmpty(t, id, "calls without an id are assigned one")
			require.Equal(t, CodeNotImplemented, reply.Error.Code)
		}
	}

	close(release)

	var third Reply
	require.NoError(t, conn.ReadJSON(&third))
	require.Equal(t, "slow", third.ID)
	require.Equal(t, 20, third.Depth)
}

func TestChannel_MalformedCall(t *testing.T) {
	d := NewDispatcher(slog.Default(), newSupervisor(t, enginetest.ModeNormal))
	srv := httptest.NewServer(NewServer(slog.Default(), d, nil).Handler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/v1/channel", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	var reply Reply
	require.NoError(t, conn.ReadJSON(&reply))
	require.NotNil(t, reply.Error)
	require.Equal(t, errors.CodeInvalidArgument, reply.Error.Code)
}

func connectMCP(t *testing.T, d *Dispatcher) *mcp.ClientSession {
	t.Helper()

	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	serverSession, err := NewMCPServer(slog.Default(), d, "test").Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)

	clientSession, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = clientSession.Close() })

	return clientSession
}

func TestMCP_ListTools(t *testing.T) {
	cs := connectMCP(t, NewDispatcher(slog.Default(), newSupervisor(t, enginetest.ModeNormal)))

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, res.Tools, 1)
	require.Equal(t, ToolGetBestMove, res.Tools[0].Name)
}

func TestMCP_GetBestMove(t *testing.T) {
	cs := connectMCP(t, NewDispatcher(slog.Default(), newSupervisor(t, enginetest.ModeNormal)))

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      ToolGetBestMove,
		Arguments: map[string]any{"fen": position.StartFEN, "depth": 3},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Len(t, res.Content, 1)

	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)

	var reply Reply
	require.NoError(t, json.Unmarshal([]byte(text.Text), &reply))
	require.Equal(t, enginetest.StubBestMove, reply.Move)
	require.Equal(t, 3, reply.Depth)
}

func TestMCP_GetBestMoveError(t *testing.T) {
	cs := connectMCP(t, NewDispatcher(slog.Default(), newSupervisor(t, enginetest.ModeNormal)))

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      ToolGetBestMove,
		Arguments: map[string]any{"fen": "8/8/8 w"},
	})
	require.NoError(t, err)
	require.True(t, res.IsError)

	text := res.Content[0].(*mcp.TextContent).Text
	require.True(t, strings.HasPrefix(text, errors.CodeInvalidArgument+":"), text)
}
