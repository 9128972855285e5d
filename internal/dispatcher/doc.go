// Package dispatcher exposes the manyvis command surface.
//
// Request/response commands wait for the resources they need and return a
// Result. Triggers never wait: if a resource is busy they report the
// failure as an event, and every outcome reaches the client through the
// Emitter.
package dispatcher
