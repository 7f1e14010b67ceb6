package gateway

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/carclash-server/pkg/config"
	"github.com/mpapenbr/carclash-server/pkg/engine"
	"github.com/mpapenbr/carclash-server/pkg/gateway/protocol"
	"github.com/mpapenbr/carclash-server/pkg/store"
	"github.com/mpapenbr/carclash-server/testsupport/basedata"
)

type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func startServer(t *testing.T, cfg config.Config) *httptest.Server {
	t.Helper()
	st := basedata.SampleStore(basedata.NewClock())
	hub := NewHub()
	var d *Dispatcher
	eng := engine.New(st, engine.WithSweep(time.Hour, func(*store.Store) { d.Sweep() }))
	d = NewDispatcher(st, hub, eng, WithConfig(cfg))
	eng.Start(context.Background())
	t.Cleanup(eng.Close)

	srv := httptest.NewServer(New(eng, hub, d, WithGatewayConfig(cfg)))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendCmd(t *testing.T, conn *websocket.Conn, kind protocol.CommandKind, payload any) {
	t.Helper()
	env := map[string]any{"type": kind, "payload": payload}
	require.NoError(t, conn.WriteJSON(env))
}

// next reads events until one of eventType arrives
func next(t *testing.T, conn *websocket.Conn, eventType string) inbound {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var msg inbound
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == eventType {
			return msg
		}
	}
}

func TestWebsocketSession(t *testing.T) {
	srv := startServer(t, config.Defaults())
	c1 := dial(t, srv)
	sendCmd(t, c1, protocol.CmdJoinGame, protocol.JoinGame{Name: "first"})
	msg := next(t, c1, protocol.EvtGameState)
	var state struct {
		Player struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Money int64  `json:"money"`
		} `json:"player"`
	}
	require.NoError(t, json.Unmarshal(msg.Payload, &state))
	assert.Equal(t, "first", state.Player.Name)
	assert.Equal(t, int64(100000), state.Player.Money)

	c2 := dial(t, srv)
	sendCmd(t, c2, protocol.CmdJoinGame, protocol.JoinGame{Name: "second"})
	next(t, c2, protocol.EvtGameState)
	joined := next(t, c1, protocol.EvtPlayerJoined)
	assert.Contains(t, string(joined.Payload), `"second"`)

	sendCmd(t, c2, protocol.CmdBuyCar, "bmw-m3")
	res := next(t, c2, protocol.EvtBuyCarResult)
	assert.Contains(t, string(res.Payload), `"success":true`)

	c2.Close()
	left := next(t, c1, protocol.EvtPlayerLeft)
	assert.NotEmpty(t, left.Payload)
}

func TestWebsocketMalformed(t *testing.T) {
	srv := startServer(t, config.Defaults())
	c := dial(t, srv)
	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("{not json")))
	msg := next(t, c, protocol.EvtError)
	assert.Contains(t, string(msg.Payload), "invalid_input")
}

func TestWebsocketRateLimit(t *testing.T) {
	cfg := config.Defaults()
	cfg.CommandRate = 0.001
	cfg.CommandBurst = 1
	srv := startServer(t, cfg)
	c := dial(t, srv)
	sendCmd(t, c, protocol.CmdHeartbeat, nil)
	next(t, c, protocol.EvtHeartbeat)
	sendCmd(t, c, protocol.CmdHeartbeat, nil)
	msg := next(t, c, protocol.EvtError)
	assert.Contains(t, string(msg.Payload), "rate_limited")
}

func TestWebsocketAdminBan(t *testing.T) {
	cfg := config.Defaults()
	cfg.AdminSecret = "s3cret"
	srv := startServer(t, cfg)
	admin := dial(t, srv)
	target := dial(t, srv)
	sendCmd(t, admin, protocol.CmdJoinGame, nil)
	next(t, admin, protocol.EvtGameState)
	sendCmd(t, target, protocol.CmdJoinGame, nil)
	var state struct {
		Player struct {
			ID string `json:"id"`
		} `json:"player"`
	}
	require.NoError(t, json.Unmarshal(next(t, target, protocol.EvtGameState).Payload, &state))

	sendCmd(t, admin, protocol.CmdAdminExec, protocol.AdminExec{Secret: "wrong", Cmd: "ban"})
	msg := next(t, admin, protocol.EvtAdminLog)
	assert.Contains(t, string(msg.Payload), "Invalid admin secret")

	sendCmd(t, admin, protocol.CmdAdminExec, protocol.AdminExec{
		Secret: "s3cret", Cmd: "ban", Args: protocol.AdminArgs{TargetID: state.Player.ID},
	})
	next(t, target, protocol.EvtBanned)
	// the server closes the connection afterwards
	require.NoError(t, target.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		if _, _, err := target.ReadMessage(); err != nil {
			break
		}
	}
	next(t, admin, protocol.EvtPlayerLeft)
}
