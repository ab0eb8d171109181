// Package chat holds the domain vocabulary shared by the store, the room
// coordinator and the transports: messages, sessions, rooms, the events
// pushed to room members, and the error kinds surfaced to callers.
//
// Nothing in this package performs I/O or holds locks.
package chat
