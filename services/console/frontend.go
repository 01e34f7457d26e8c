package console

import (
	"bufio"
	"io"
	"strings"
)

// Lines reads newline-terminated input from a pipe or a serial port.
// CR and CRLF endings are accepted.
type Lines struct {
	sc *bufio.Scanner
	c  io.Closer
}

func NewLines(r io.Reader) *Lines {
	sc := bufio.NewScanner(r)
	sc.Split(scanCRLF)
	l := &Lines{sc: sc}
	if c, ok := r.(io.Closer); ok {
		l.c = c
	}
	return l
}

func (l *Lines) ReadLine() (string, error) {
	if l.sc.Scan() {
		return strings.TrimSpace(l.sc.Text()), nil
	}
	if err := l.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (l *Lines) Close() error {
	if l.c == nil {
		return nil
	}
	return l.c.Close()
}

// scanCRLF splits on '\n' or '\r'; terminals on a UART often send bare CR.
func scanCRLF(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i, b := range data {
		if b == '\n' || b == '\r' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}
