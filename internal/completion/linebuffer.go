package completion

import "bytes"

// LineBuffer reassembles newline-terminated lines from arbitrarily split chunks.
// A partial trailing line is kept until a later Write completes it.
type LineBuffer struct {
	buf []byte
}

// Write appends a chunk.
func (b *LineBuffer) Write(p []byte) {
	b.buf = append(b.buf, p...)
}

// Next returns the next complete line without its terminator.
func (b *LineBuffer) Next() (string, bool) {
	i := bytes.IndexByte(b.buf, '\n')
	if i < 0 {
		return "", false
	}
	line := string(bytes.TrimRight(b.buf[:i], "\r"))
	b.buf = b.buf[i+1:]
	return line, true
}
