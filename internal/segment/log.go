package segment

import (
	"io"
	"log"
	"sync"
)

// LogWriters holds the io.Writers for each logging stream.
type LogWriters struct {
	Ops   io.Writer
	Diag  io.Writer
	Trace io.Writer
}

type stream int

const (
	opsStream stream = iota
	diagStream
	traceStream
	numStreams
)

var (
	logMu   sync.RWMutex
	loggers [numStreams]*log.Logger
)

// SetLogWriters configures all three logging streams at once.
// Pass nil for any writer to disable that stream.
func SetLogWriters(w LogWriters) {
	logMu.Lock()
	defer logMu.Unlock()
	loggers[opsStream] = newLogger(w.Ops)
	loggers[diagStream] = newLogger(w.Diag)
	loggers[traceStream] = newLogger(w.Trace)
}

// newLogger creates a *log.Logger for w, or returns nil if w is nil.
func newLogger(w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, "[segment] ", log.LstdFlags|log.Lmicroseconds)
}

func logf(s stream, format string, args []interface{}) {
	logMu.RLock()
	l := loggers[s]
	logMu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}

// Opsf logs to the ops stream (batch summaries when candidates were
// rejected).
func Opsf(format string, args ...interface{}) { logf(opsStream, format, args) }

// Diagf logs to the diag stream (one line per segment fit or rejection,
// migration progress).
func Diagf(format string, args ...interface{}) { logf(diagStream, format, args) }

// Tracef logs to the trace stream (every hit position update, high volume).
func Tracef(format string, args ...interface{}) { logf(traceStream, format, args) }
