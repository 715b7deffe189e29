package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestLineFramerSplitMessage(t *testing.T) {
	f := newLineFramer(1024)
	msg := `{"id":null,"method":"mining.set_difficulty","params":[16]}`

	lines, dropped := f.feed([]byte(msg[:20]))
	if len(lines) != 0 || dropped != 0 {
		t.Fatalf("partial message produced %d lines", len(lines))
	}
	lines, _ = f.feed([]byte(msg[20:] + "\n" + `{"id":2,"result":true}` + "\n" + `{"id":3`))
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if string(lines[0]) != msg || string(lines[1]) != `{"id":2,"result":true}` {
		t.Fatalf("unexpected lines %q", lines)
	}
	lines, _ = f.feed([]byte(",\"result\":false}\r\n"))
	if len(lines) != 1 || string(lines[0]) != `{"id":3,"result":false}` {
		t.Fatalf("tail line %q", lines)
	}
}

func TestLineFramerSkipsBlankLines(t *testing.T) {
	f := newLineFramer(64)
	lines, _ := f.feed([]byte("\n\r\n  \n{}\n"))
	if len(lines) != 1 || !bytes.Equal(lines[0], []byte("{}")) {
		t.Fatalf("lines %q", lines)
	}
}

func TestLineFramerDropsOversizedMessage(t *testing.T) {
	f := newLineFramer(16)
	big := strings.Repeat("x", 40)

	lines, dropped := f.feed([]byte(big[:20]))
	if len(lines) != 0 || dropped != 1 {
		t.Fatalf("oversized partial: lines %d dropped %d", len(lines), dropped)
	}
	lines, dropped = f.feed([]byte(big[20:] + "\n{\"id\":1}\n"))
	if dropped != 0 {
		t.Fatalf("oversized message counted twice")
	}
	if len(lines) != 1 || string(lines[0]) != `{"id":1}` {
		t.Fatalf("lines after oversized message %q", lines)
	}

	lines, dropped = f.feed([]byte(big + "\n"))
	if len(lines) != 0 || dropped != 1 {
		t.Fatalf("complete oversized line: lines %d dropped %d", len(lines), dropped)
	}
}

func TestLineFramerReset(t *testing.T) {
	f := newLineFramer(64)
	f.feed([]byte(`{"partial":`))
	f.reset()
	lines, _ := f.feed([]byte("{}\n"))
	if len(lines) != 1 || string(lines[0]) != "{}" {
		t.Fatalf("reset kept partial data: %q", lines)
	}
}
