package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"modelbridge/internal/bridge"
	"modelbridge/pkg/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     checkOrigin,
}

// checkOrigin allows same-host requests, plus the CORS origins when CORS is enabled.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	if !corsEnabled {
		return false
	}
	for _, o := range corsAllowedOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// wsConn serializes writes; gorilla allows one concurrent writer.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) send(ev types.StreamEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteJSON(ev)
}

func wsError(ref string, code bridge.Code, msg string) types.StreamEvent {
	return types.StreamEvent{Type: string(bridge.EventError), Ref: ref, Code: string(code), Message: msg}
}

// websocket godoc
// @Summary      Stream over WebSocket
// @Description  Client frames: {"op":"subscribe","ref","session_id","prompt","options"} and {"op":"cancel","stream_id"}. Server frames: {"type":"subscribed","ref","stream_id"} then chunk/end/error events tagged with stream_id and ref. Closing the socket cancels its streams.
// @Tags         bridge
// @Router       /v1/ws [get]
func (h *handlers) websocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		reqEvent(r, LevelError).Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close()
	reqEvent(r, LevelInfo).Msg("websocket open")

	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	c := &wsConn{conn: conn}
	var wg sync.WaitGroup
	defer wg.Wait()
	// cancel before waiting so forwarders see their streams end
	defer cancel()

	go func() {
		<-ctx.Done()
		// unblock ReadMessage on shutdown
		_ = conn.SetReadDeadline(time.Now())
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			reqEvent(r, LevelInfo).Err(err).Msg("websocket closed")
			return
		}
		var msg types.WSRequest
		if err := json.Unmarshal(data, &msg); err != nil {
			if c.send(wsError("", bridge.CodeInvalidArgument, "invalid JSON frame")) != nil {
				return
			}
			continue
		}
		switch msg.Op {
		case "subscribe":
			sub := h.svc.Subscribe(ctx, bridge.StreamRequest{
				SessionID: msg.SessionID,
				Prompt:    msg.Prompt,
				Options:   decodeOptions(msg.Options),
			})
			if sub.ID() != "" {
				if c.send(types.StreamEvent{Type: "subscribed", Ref: msg.Ref, StreamID: sub.ID()}) != nil {
					sub.Cancel()
					return
				}
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				forward(ctx, c, sub, msg.Ref)
			}()
		case "cancel":
			if err := h.svc.CancelStream(msg.StreamID); err != nil {
				if c.send(wsError(msg.Ref, bridge.CodeOf(err), err.Error())) != nil {
					return
				}
			}
		default:
			if c.send(wsError(msg.Ref, bridge.CodeInvalidArgument, "unknown op "+`"`+msg.Op+`"`)) != nil {
				return
			}
		}
	}
}

// forward relays sub's events until its channel closes. A failed write
// cancels the subscription.
func forward(ctx context.Context, c *wsConn, sub *bridge.Subscription, ref string) {
	for ev := range sub.Events() {
		if ev.Type == bridge.EventError && ev.Code == bridge.CodeSessionBusy {
			IncrementBackpressure("session_busy")
		}
		out := wireEvent(ev)
		out.StreamID = sub.ID()
		out.Ref = ref
		if ctx.Err() != nil {
			continue
		}
		if err := c.send(out); err != nil {
			sub.Cancel()
		}
	}
}
