// Package simplelogger is a minimal, env-var-gated debug trail. It exists so
// recording decisions that are deliberately silent in the API (suppressed
// hash failures, skipped pre-scan candidates) can still be reconstructed
// after the fact; it is not an observability surface and callers must never
// depend on it succeeding.
package simplelogger

import (
	"bytes"
	"fmt"
	"os"
	"sync"
	"time"
)

var mu sync.Mutex

// Log appends an info-level line to the file named by the
// FINGERPRINT_LOG_FILE environment variable. If the variable is unset/empty
// or the path can't be opened, Log is a no-op.
func Log(format string, args ...any) {
	write("INFO", format, args)
}

// Warn is Log at warning level, for conditions that were tolerated but are
// worth flagging in the trail.
func Warn(format string, args ...any) {
	write("WARN", format, args)
}

func write(level, format string, args []any) {
	path := os.Getenv("FINGERPRINT_LOG_FILE")
	if path == "" {
		return
	}

	// Serialize open/write/close to reduce interleaving within a process.
	mu.Lock()
	defer mu.Unlock()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	var b bytes.Buffer
	_, _ = fmt.Fprintf(&b, "%s %s ", time.Now().Format(time.RFC3339), level)
	_, _ = fmt.Fprintf(&b, format, args...)
	if b.Bytes()[b.Len()-1] != '\n' {
		_ = b.WriteByte('\n')
	}
	_, _ = f.Write(b.Bytes())
}
