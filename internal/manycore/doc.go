// Package manycore parses, validates and re-serialises ManycoreSystem
// documents: a rows × columns grid of cores, each with a router and
// directional channels, plus the task graph allocated onto the cores.
//
// Attributes the model does not name are preserved verbatim so that a
// parse followed by MarshalIndent keeps every piece of information the
// author wrote.
package manycore
