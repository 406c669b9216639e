package progress

import (
	"io"

	"github.com/charmbracelet/log"
)

func newTestLogger(w io.Writer) *log.Logger {
	return log.NewWithOptions(w, log.Options{})
}
