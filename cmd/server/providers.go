package main

import (
	"log/slog"
	"net/http"

	"github.com/mama165/sdk-go/logs"

	"github.com/Tyrowin/roomchat/internal/server"
	"github.com/Tyrowin/roomchat/internal/store"
)

// App is the main application container.
type App struct {
	Config server.Config
	Log    *slog.Logger
	Server *http.Server
	Hub    *server.Hub
}

func provideLogger(cfg server.Config) *slog.Logger {
	return logs.GetLoggerFromString(cfg.LogLevel)
}

func provideStore(cfg server.Config) *store.Store {
	return store.New(store.WithHistoryLimit(cfg.HistoryLimit))
}

func provideHTTPServer(cfg server.Config, handler http.Handler) *http.Server {
	return server.CreateServer(cfg.HTTPAddr, handler)
}
