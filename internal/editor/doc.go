// Package editor round-trips the loaded system through an external text
// editor. The system is written to a temporary file, the editor runs
// without any store lock held, and the edited file is parsed and committed
// only if the editor exits cleanly and the result validates.
package editor
