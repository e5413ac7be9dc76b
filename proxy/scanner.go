package proxy

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// UCI lines are short, but "position ... moves" lists from long games are
// not; give the scanners room.
const maxLineSize = 1024 * 1024

// scanRawLines splits on '\n' but keeps the terminator with the token, so
// the relay can write the source bytes through unmodified: a CRLF stays a
// CRLF, and a final line with no newline does not grow one.
func scanRawLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, data[:i+1], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func newRawLineScanner(r io.Reader) *bufio.Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	s.Split(scanRawLines)
	return s
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return s
}

// trimLineEnding strips the "\n" or "\r\n" terminator for the tee; the log
// stores line bodies, the relayed stream keeps the original bytes.
func trimLineEnding(raw []byte) string {
	s := strings.TrimSuffix(string(raw), "\n")
	return strings.TrimSuffix(s, "\r")
}
