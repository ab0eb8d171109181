package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter registers the websocket endpoint and the request surface. Routes
// are registered on the root router with full paths so a known path with the
// wrong method answers 405.
func NewRouter(api *API, ws *WebSocketHandler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", api.Index).Methods(http.MethodGet)
	r.Handle("/ws", ws)

	r.HandleFunc("/api/health", api.Health).Methods(http.MethodGet)
	r.HandleFunc("/api/door", api.Door).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/api/messages", api.ListMessages).Methods(http.MethodGet)
	r.HandleFunc("/api/messages", api.CreateMessage).Methods(http.MethodPost)
	r.HandleFunc("/api/users", api.ListUsers).Methods(http.MethodGet)
	r.HandleFunc("/api/rooms", api.ListRooms).Methods(http.MethodGet)
	// Room names may contain slashes.
	r.HandleFunc("/api/rooms/{name:.+}", api.GetRoom).Methods(http.MethodGet)
	return r
}

// NewHandler wraps the router with the origin policy so preflight requests
// are answered before routing.
func NewHandler(api *API, ws *WebSocketHandler, policy *OriginPolicy) http.Handler {
	return policy.Middleware(NewRouter(api, ws))
}
