// Package export turns the current diagram or system into artifacts: SVG
// text, PNG rasters and the canonical system XML.
//
// A clipped export temporarily swaps the diagram viewport to the clip
// rectangle and injects the clip polygon. Both are restored before the
// export returns, whatever the outcome.
package export
