package stream

import (
	"bytes"
	"errors"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Framer turns arbitrarily split body chunks into complete text lines.
// Multi-byte characters split across chunks are decoded once their last byte
// arrives; invalid sequences decode to U+FFFD.
type Framer struct {
	decoder *encoding.Decoder
	carry   []byte
	pending []byte
	scratch [4096]byte
}

// NewFramer returns an empty Framer.
func NewFramer() *Framer {
	dec := unicode.UTF8.NewDecoder()
	dec.Reset()
	return &Framer{decoder: dec}
}

// Write consumes the next chunk and returns the lines it completed, in order.
func (f *Framer) Write(chunk []byte) []string {
	f.decode(chunk, false)
	return f.split()
}

// Flush ends the stream and returns the remaining lines, including a final
// unterminated line when it is not blank.
func (f *Framer) Flush() []string {
	f.decode(nil, true)
	lines := f.split()
	if len(f.pending) > 0 {
		rest := string(bytes.TrimSuffix(f.pending, []byte{'\r'}))
		if strings.TrimSpace(rest) != "" {
			lines = append(lines, rest)
		}
	}
	f.pending = nil
	f.carry = nil
	f.decoder.Reset()
	return lines
}

func (f *Framer) decode(chunk []byte, atEOF bool) {
	src := chunk
	if len(f.carry) > 0 {
		src = append(f.carry, chunk...)
		f.carry = nil
	}
	for {
		nDst, nSrc, err := f.decoder.Transform(f.scratch[:], src, atEOF)
		f.pending = append(f.pending, f.scratch[:nDst]...)
		src = src[nSrc:]
		switch {
		case err == nil:
			return
		case errors.Is(err, transform.ErrShortDst):
			continue
		case errors.Is(err, transform.ErrShortSrc):
			f.carry = append([]byte(nil), src...)
			return
		default:
			f.pending = append(f.pending, src...)
			return
		}
	}
}

func (f *Framer) split() []string {
	var lines []string
	start := 0
	for {
		idx := bytes.IndexByte(f.pending[start:], '\n')
		if idx < 0 {
			break
		}
		line := f.pending[start : start+idx]
		lines = append(lines, string(bytes.TrimSuffix(line, []byte{'\r'})))
		start += idx + 1
	}
	if start > 0 {
		f.pending = append([]byte(nil), f.pending[start:]...)
	}
	return lines
}
