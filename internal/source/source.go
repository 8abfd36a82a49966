package source

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// ErrSourceUnavailable is returned when a log source cannot be opened or decoded.
// It is fatal to a run.
var ErrSourceUnavailable = errors.New("source unavailable")

// maxLineSize bounds a single log record. Longer records are still consumed
// but yielded as empty lines, so they count as unparsed instead of failing the
// source.
const maxLineSize = 1024 * 1024

// Reader yields the decoded lines of one log source in order.
type Reader struct {
	name      string
	closers   []io.Closer
	br        *bufio.Reader
	buf       []byte
	line      string
	lineNum   int
	oversized int
	done      bool
	err       error
}

// IsCompressed reports whether path names a gzip source.
func IsCompressed(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".gz")
}

// Open opens the file at path, decompressing it when the name ends in ".gz".
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, path, err)
	}

	r, err := NewReader(f, path, IsCompressed(path))
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closers = append(r.closers, f)
	return r, nil
}

// NewReader wraps r. The caller keeps ownership of r; Close on the returned
// Reader only releases the decompressor.
func NewReader(r io.Reader, name string, compressed bool) (*Reader, error) {
	rd := &Reader{name: name}

	if compressed {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, name, err)
		}
		rd.closers = append(rd.closers, gz)
		r = gz
	}

	rd.br = bufio.NewReaderSize(r, 64*1024)
	return rd, nil
}

// Name returns the source identifier the reader was created with.
func (r *Reader) Name() string { return r.name }

// Next advances to the next line. It returns false at end of source or on error.
func (r *Reader) Next() bool {
	if r.done || r.err != nil {
		return false
	}

	r.buf = r.buf[:0]
	read, tooLong := false, false
	for {
		chunk, isPrefix, err := r.br.ReadLine()
		if err == io.EOF {
			r.done = true
			if !read {
				return false
			}
			break
		}
		if err != nil {
			r.err = fmt.Errorf("%w: %s: line %d: %v", ErrSourceUnavailable, r.name, r.lineNum+1, err)
			return false
		}
		read = true
		if !tooLong {
			if len(r.buf)+len(chunk) > maxLineSize {
				tooLong = true
				r.buf = r.buf[:0]
			} else {
				r.buf = append(r.buf, chunk...)
			}
		}
		if !isPrefix {
			break
		}
	}

	r.lineNum++
	if tooLong {
		r.oversized++
		r.line = ""
		return true
	}
	r.line = strings.TrimSuffix(string(r.buf), "\r")
	return true
}

// Line returns the current line without its terminator.
func (r *Reader) Line() string { return r.line }

// LineNumber returns the 1-based number of the current line.
func (r *Reader) LineNumber() int { return r.lineNum }

// Oversized returns how many lines exceeded maxLineSize and were yielded empty.
func (r *Reader) Oversized() int { return r.oversized }

// Err returns the first read or decode error, if any.
func (r *Reader) Err() error { return r.err }

// Close releases the decompressor and, for Open, the underlying file.
func (r *Reader) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}
