package main

import (
	"embed"
	"io/fs"
	"log/slog"
)

//go:embed demo
var demoFS embed.FS

// demoStartStem is the note the demo opens on.
const demoStartStem = "welcome"

// openDemoNotebook loads the notebook embedded in the binary. It has no
// directory on disk, so nothing in it can be edited or watched.
func openDemoNotebook(log *slog.Logger) (*notebook, error) {
	sub, err := fs.Sub(demoFS, "demo")
	if err != nil {
		// Embedded data is compile-time constant; panic is appropriate.
		panic("demo notebook: " + err.Error())
	}
	return loadNotebook(sub, "", nil, log)
}

func demoBackend(nb *notebook) localBackend {
	return localBackend{nb: nb, readOnly: true}
}
