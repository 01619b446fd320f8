// Package websocket broadcasts license lifecycle events to connected admin
// clients.
//
// The Hub implements license.EventPublisher. Each published event is
// encoded once and fanned out to every registered client. Publishing never
// blocks the caller: when the hub queue is full the event is dropped and
// counted. Clients whose send buffer is full are disconnected.
package websocket
