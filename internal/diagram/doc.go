// Package diagram lays out a manycore system as an SVG diagram and applies
// configuration updates to it in place.
//
// A Diagram has fixed base layers (cores, routers, channels, tasks) and a
// set of configurable layers, one per enabled attribute. Update rebuilds
// only the layers whose arguments changed and reports them so clients can
// patch a previously fetched document.
package diagram
