// Package state owns the three long-lived resources of a manyvis session:
// the parsed system, the diagram derived from it and the shared font.
//
// Nothing outside the Store holds a reference to a resource. Callers run a
// function inside a scope that acquires the locks it needs, always in the
// order system → diagram → font, and releases them when the function
// returns or panics.
package state
