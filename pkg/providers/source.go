// Package providers holds the loaders that turn GFA and VCF inputs into the
// graph and bubble models.
package providers

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

var gzipMagic = []byte{0x1f, 0x8b}

// MaxLineBytes bounds a single input line. GFA segment records carry whole
// sequences on one line.
const MaxLineBytes = 256 << 20

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r *readCloser) Close() error {
	var first error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open opens path for reading, transparently decompressing gzip and BGZF
// content. "-" reads stdin.
func Open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return Decompress(os.Stdin)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	rc, err := decompress(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	// Closed last, after any decompressor.
	rc.closers = append([]io.Closer{f}, rc.closers...)
	return rc, nil
}

// Decompress sniffs r and wraps it in a gzip reader when needed. Closing the
// result does not close r.
func Decompress(r io.Reader) (io.ReadCloser, error) {
	rc, err := decompress(r)
	if err != nil {
		return nil, err
	}
	return rc, nil
}

func decompress(r io.Reader) (*readCloser, error) {
	br := bufio.NewReaderSize(r, 64<<10)
	head, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, err
	}
	if !bytes.Equal(head, gzipMagic) {
		return &readCloser{Reader: br}, nil
	}

	zr, err := gzip.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("corrupt gzip stream: %w", err)
	}
	return &readCloser{Reader: zr, closers: []io.Closer{zr}}, nil
}

// NewScanner returns a line scanner sized for long records.
func NewScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1<<20), MaxLineBytes)
	return sc
}
