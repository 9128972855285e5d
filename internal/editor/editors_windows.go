package editor

var platformEditors = []string{"code.cmd -n -w", "atom.exe -w", "subl.exe -w", "notepad.exe"}
