// Package server is the network face of roomchat: the websocket session
// gateway (Hub, Registry, Client), the JSON request surface (API), and the
// HTTP plumbing around them (routing, origin policy, configuration, server
// lifecycle).
//
// Neither transport touches the store directly. Every state change goes
// through rooms.Coordinator, and the Registry is the coordinator's Notifier.
package server
