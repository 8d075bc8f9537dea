// Package rate is the Redis fixed-window counter behind login throttling.
//
// Keys are <prefix>:u:<sha256(identifier)> and, with IP throttling on,
// <prefix>:ip:<ip>. The first INCR in a window sets the expiry.
package rate
