package log

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// RawLogger records raw radio frames.
type RawLogger interface {
	Log(rx bool, data []byte)
}

type rawLogger struct {
	w  io.Writer
	mu sync.Mutex
}

// NewRaw returns a RawLogger writing to w. A nil writer discards everything.
func NewRaw(w io.Writer) RawLogger {
	return &rawLogger{w: w}
}

// Log writes one line per frame: timestamp, direction, size and hex dump.
func (r *rawLogger) Log(rx bool, data []byte) {
	if len(data) == 0 || r.w == nil {
		return
	}

	dir := "TX"
	if rx {
		dir = "RX"
	}
	line := fmt.Sprintf("%s %s frame: %d bytes, hex: % x\n",
		time.Now().Format("2006/01/02 15:04:05.000"),
		dir,
		len(data),
		data)

	r.mu.Lock()
	_, _ = io.WriteString(r.w, line)
	r.mu.Unlock()
}
