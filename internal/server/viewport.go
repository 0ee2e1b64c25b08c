package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/warpdl/warpfetch/common"
	"golang.org/x/net/websocket"
)

// viewportStream returns the raw event endpoint. Each text frame is one
// common.ViewportEvent; there are no replies. Frames that do not decode or
// name an unknown event are logged and skipped.
func (rs *RPCServer) viewportStream() http.Handler {
	return websocket.Server{
		// Non-browser clients send no Origin header.
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
		Handler:   rs.handleViewportConn,
	}
}

func (rs *RPCServer) handleViewportConn(conn *websocket.Conn) {
	defer conn.Close()
	stop := context.AfterFunc(conn.Request().Context(), func() { conn.Close() })
	defer stop()
	for {
		var data []byte
		if err := websocket.Message.Receive(conn, &data); err != nil {
			if !errors.Is(err, io.EOF) {
				rs.log.Warning("viewport: receive: %v", err)
			}
			return
		}
		var ev common.ViewportEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			rs.log.Warning("viewport: bad event: %v", err)
			continue
		}
		rs.applyEvent(ev)
	}
}

func (rs *RPCServer) applyEvent(ev common.ViewportEvent) {
	v := rs.deps.Viewport
	if v == nil {
		return
	}
	if ev.Index < 0 {
		rs.log.Warning("viewport: ignoring negative index %d", ev.Index)
		return
	}
	switch ev.Event {
	case common.EventAppear:
		v.OnAppear(ev.Index)
	case common.EventDisappear:
		v.OnDisappear(ev.Index)
	default:
		rs.log.Warning("viewport: unknown event %q", ev.Event)
	}
}
