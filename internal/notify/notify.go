// Package notify provides notesync.Notifier sinks.
package notify

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/alexjbarnes/gitlab-note-sync/internal/notesync"
)

// Writer prints each message on its own line. Safe for concurrent use.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (n *Writer) Notify(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	fmt.Fprintln(n.w, message)
}

// Log emits each message as an info record.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (n *Log) Notify(message string) {
	n.logger.Info("notification", slog.String("message", message))
}

// Multi fans a message out to every notifier in order. Nil entries are
// skipped.
type Multi []notesync.Notifier

func (m Multi) Notify(message string) {
	for _, n := range m {
		if n != nil {
			n.Notify(message)
		}
	}
}
