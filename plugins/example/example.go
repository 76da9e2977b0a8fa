// Shared object build of the example input. Build with:
//
//	go build -buildmode=plugin -o flit-in_example.so ./plugins/example
//
// The file name matters: the loader derives the plugin name from it and
// refuses a descriptor whose Name disagrees.
package main

import (
	"flit.hoyle.net/internal/inputs/example"
	"flit.hoyle.net/pkg/input"
)

// InputPlugin is the symbol the loader looks up.
var InputPlugin *input.Plugin = example.Plugin

func main() {}
