package logging

import (
	"io"
	"os"
)

// stderr is indirected for tests.
var stderrWriter io.Writer = os.Stderr

func stderr() io.Writer {
	return stderrWriter
}
