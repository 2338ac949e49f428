// Package ffmpeg runs the ffmpeg binary as the codec runtime of screenrec.
//
// Runtime is the one-shot job runner used for transcoding: it is loaded once, owns a private work dir
// that acts as the codec's file system, and publishes every log line it prints.
// Pipe is the long-lived variant used for live encoding, frames go in through stdin and the container
// bytes come out of stdout.
package ffmpeg

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
)

var (
	// ErrLoad is returned when the runtime can't be loaded
	ErrLoad = errors.New("failed to load the codec runtime")
	// ErrNotLoaded is returned when a job is sent before Load succeeded
	ErrNotLoaded = errors.New("codec runtime is not loaded")
	// ErrExec is returned when ffmpeg exits with a failure
	ErrExec = errors.New("codec runtime failed")
)

// ScanLines is a bufio.SplitFunc that treats both "\r" and "\n" as line ends,
// ffmpeg rewrites its progress line with "\r".
func ScanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// readLines calls fn for each non-empty line of r until r is drained
func readLines(r io.Reader, fn func(string)) {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), 1024*1024)
	s.Split(ScanLines)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line != "" {
			fn(line)
		}
	}
}

// tail keeps the last n lines
type tail struct {
	lock  sync.Mutex
	n     int
	lines []string
}

func newTail(n int) *tail {
	return &tail{n: n}
}

func (t *tail) add(line string) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.lines = append(t.lines, line)
	if len(t.lines) > t.n {
		t.lines = t.lines[len(t.lines)-t.n:]
	}
}

func (t *tail) String() string {
	t.lock.Lock()
	defer t.lock.Unlock()

	return strings.Join(t.lines, "\n")
}
