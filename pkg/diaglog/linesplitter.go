package diaglog

import (
	"bytes"
	"io"
	"sync"
)

type LineSplitter struct {
	pending []byte // bytes after the last \n
	line    func(string)
	mu      sync.Mutex
}

// writes to the returned writer end up in "sink" as-is, and each completed line is given
// to "line" without its newline (and without a trailing \r)
func NewLineSplitterTee(sink io.Writer, line func(string)) (io.Writer, *LineSplitter) {
	splitter := &LineSplitter{line: line}

	return io.MultiWriter(sink, splitter), splitter
}

func (l *LineSplitter) Write(data []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pending = append(l.pending, data...)

	for {
		idx := bytes.IndexByte(l.pending, '\n')
		if idx == -1 {
			break
		}

		l.emit(l.pending[:idx])

		l.pending = l.pending[idx+1:]
	}

	return len(data), nil
}

// emits a final unterminated line, if any. call after the writer has seen its last write
func (l *LineSplitter) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.pending) > 0 {
		l.emit(l.pending)
		l.pending = nil
	}
}

func (l *LineSplitter) emit(line []byte) {
	l.line(string(bytes.TrimSuffix(line, []byte("\r"))))
}
