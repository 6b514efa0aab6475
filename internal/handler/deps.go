package handler

import (
	"lobby/internal/app/hub"
	"lobby/internal/app/session"
	"lobby/internal/configs"
)

// AppDeps bundles what the HTTP handlers need.
type AppDeps struct {
	Hub     *hub.Hub
	Session *session.Server
	Config  *configs.AppConfig
}
