package llm

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// maxEventSize bounds a single SSE line.
const maxEventSize = 64 * 1024

var errEventTooLarge = errors.New("sse event exceeds 64KiB")

// sseReader parses Server-Sent Events.
type sseReader struct {
	scanner *bufio.Scanner
}

func newSSEReader(r io.Reader) *sseReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxEventSize)
	return &sseReader{scanner: sc}
}

// next returns the data of the next event, joining multi-line data with "\n".
// Returns io.EOF when the stream ends.
func (s *sseReader) next() ([]byte, error) {
	var data [][]byte
	for s.scanner.Scan() {
		line := s.scanner.Bytes()
		if len(line) == 0 {
			if len(data) > 0 {
				return bytes.Join(data, []byte("\n")), nil
			}
			continue
		}
		// Other fields (event:, id:, retry:, ": comments") are ignored.
		if d := dataLine(line); d != nil {
			data = append(data, bytes.Clone(d))
		}
	}
	if err := s.scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, errEventTooLarge
		}
		return nil, err
	}
	if len(data) > 0 {
		return bytes.Join(data, []byte("\n")), nil
	}
	return nil, io.EOF
}

func dataLine(line []byte) []byte {
	after, ok := bytes.CutPrefix(line, []byte("data:"))
	if !ok {
		return nil
	}
	return bytes.TrimPrefix(after, []byte(" "))
}
