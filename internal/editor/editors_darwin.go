package editor

var platformEditors = []string{"codium -w -n", "code -w -n", "atom -w", "subl -w", "gvim", "mate", "open -Wt", "open -a TextEdit"}
