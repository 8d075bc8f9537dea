// Package audit implements async event dispatching for security-relevant
// operations: login, OAuth issuance, reissue, replay detection and logout.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, fan-out, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: structured audit record.
//
// This package owns event buffering and sink delivery. It does NOT decide
// which events to emit; that belongs to the Engine.
package audit
