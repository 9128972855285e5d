// Package watch reloads the loaded system when its file changes on disk.
package watch
