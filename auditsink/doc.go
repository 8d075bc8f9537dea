// Package auditsink provides tokenauth.AuditSink implementations that ship
// audit events to a zap logger or publish them on a NATS subject.
//
// Sinks are called from the engine's dispatcher goroutine, never from the
// request path.
package auditsink
