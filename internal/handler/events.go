package handler

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"blurcam/internal/logger"
	"blurcam/internal/service"
	ws "blurcam/internal/service/websocket"
)

// Upgrader upgrades HTTP connections to WebSocket. Only pages served from
// this machine, or clients sending no Origin, may connect.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return isLoopbackHost(u.Hostname())
	},
}

// ClientMessage is a command sent by a control client.
type ClientMessage struct {
	Type  string      `json:"type"`
	Key   string      `json:"key,omitempty"`
	Value interface{} `json:"value,omitempty"`
}

// EventsWebsocketHandler registers control clients with the hub, sends them
// the current status and settings, then executes the commands they send.
func EventsWebsocketHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		hub := manager.GetWebsocketService()
		if err := hub.Register(r.Context(), connection); err != nil {
			connection.Close()
			return
		}
		defer hub.Unregister(r.Context(), connection)

		_ = hub.SendEvent(connection, ws.Event{Type: ws.EventStatus, Text: manager.Status()})
		_ = hub.SendEvent(connection, ws.Event{Type: ws.EventSettings, Settings: manager.Settings().Get()})

		for {
			_, data, err := connection.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Control client disconnected normally")
				} else {
					logger.Debug("Control client disconnected: %v", err)
				}
				return
			}

			if err := handleClientMessage(manager, data); err != nil {
				logger.Warning("Rejected control message: %v", err)
				_ = hub.SendEvent(connection, ws.Event{Type: ws.EventError, Text: err.Error()})
			}
		}
	}
}

func handleClientMessage(manager *service.Manager, data []byte) error {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return errors.Wrap(err, "invalid message")
	}
	switch msg.Type {
	case "set":
		return manager.Settings().Set(msg.Key, msg.Value)
	case "labels":
		manager.Settings().SetCustomLabels(cast.ToString(msg.Value))
		return nil
	case "start":
		return manager.Start()
	case "stop":
		manager.Stop()
		return nil
	default:
		return errors.Errorf("unknown message type %q", msg.Type)
	}
}

func isLoopbackHost(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
