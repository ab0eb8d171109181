//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/Tyrowin/roomchat/internal/rooms"
	"github.com/Tyrowin/roomchat/internal/server"
)

// InitializeApp wires the store, coordinator, hub and HTTP surface together.
func InitializeApp(cfg server.Config) (*App, error) {
	wire.Build(
		provideLogger,
		provideStore,
		// Session gateway
		wire.NewSet(
			server.NewRegistry,
			wire.Bind(new(rooms.Notifier), new(*server.Registry)),
			rooms.NewCoordinator,
			server.NewHub,
		),
		// HTTP surface
		wire.NewSet(
			server.NewOriginPolicy,
			server.NewWebSocketHandler,
			server.NewAPI,
			server.NewHandler,
			provideHTTPServer,
		),
		wire.Struct(new(App), "*"),
	)
	return nil, nil
}
