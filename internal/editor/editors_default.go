//go:build !darwin && !windows

package editor

var platformEditors = []string{"codium -w -n", "code -w -n", "atom -w", "subl -w", "gedit", "gvim"}
