package main

import "bytes"

// lineFramer splits a byte stream into newline-terminated messages. Partial
// messages stay buffered until their newline arrives; a message longer than
// max is discarded up to and including its newline.
type lineFramer struct {
	buf        []byte
	max        int
	discarding bool
}

func newLineFramer(max int) *lineFramer {
	return &lineFramer{max: max}
}

// feed appends p and returns every complete, non-empty line (without the
// terminator) plus the number of oversized lines dropped.
func (f *lineFramer) feed(p []byte) (lines [][]byte, dropped int) {
	f.buf = append(f.buf, p...)
	for {
		idx := bytes.IndexByte(f.buf, '\n')
		if idx < 0 {
			break
		}
		line := f.buf[:idx]
		f.buf = f.buf[idx+1:]
		if f.discarding {
			f.discarding = false
			continue
		}
		if len(line) > f.max {
			dropped++
			continue
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		lines = append(lines, append([]byte(nil), line...))
	}
	if len(f.buf) > f.max {
		if !f.discarding {
			dropped++
		}
		f.discarding = true
		f.buf = f.buf[:0]
	}
	if len(f.buf) == 0 {
		f.buf = nil
	}
	return lines, dropped
}

// reset drops any buffered partial message.
func (f *lineFramer) reset() {
	f.buf = nil
	f.discarding = false
}
