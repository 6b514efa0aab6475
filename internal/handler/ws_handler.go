/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

This file contains the HandleWebSocket function, which upgrades the HTTP connection, attaches it
to the hub, registers the lobby user and runs the client's read and write pumps.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"lobby/internal/pkg/limiter"
	"lobby/internal/pkg/logx"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
// The handler blocks in the client's ReadPump for the lifetime of the connection.
func HandleWebSocket(upgrader websocket.Upgrader, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := limiter.ClientIP(r)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// the upgrader has already replied
			return
		}

		client, err := deps.Hub.Attach(conn, ip)
		if err != nil {
			logx.Warn("WebSocket connection refused: hub is shutting down.", "remote_ip", logx.AnonymizeIP(ip))
			return
		}

		deps.Session.Connect(client.ID)

		go client.WritePump()

		logx.Info("WebSocket connection established and client registered", "client_id", client.ID)

		client.ReadPump(deps.Session)
	}
}
