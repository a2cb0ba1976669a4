// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package reader

import (
	"errors"
	"io"
)

var (
	// ErrMarkLimitExceeded is returned by reads that would move past the mark limit.
	ErrMarkLimitExceeded = errors.New("mark limit exceeded")
	// ErrNotMarked is returned by Reset when no mark is set.
	ErrNotMarked = errors.New("reader is not marked")
)

// MarkReader buffers the bytes read from src after a call to Mark,
// so that they can be replayed after Reset.
//
// While a mark is set, at most limit bytes are delivered past it: a read that
// would cross the limit returns the bytes up to the limit and then fails with
// ErrMarkLimitExceeded. The underlying source is never read past the limit.
type MarkReader struct {
	src io.Reader
	buf []byte // bytes read from src and not yet released
	off int    // read offset in buf

	marked bool
	limit  int

	pos int64 // global read offset
	err error // sticky error from src
}

func NewMarkReader(src io.Reader) *MarkReader {
	return &MarkReader{src: src}
}

// Mark sets a mark at the current position. At most limit bytes may be
// read before the mark is reset.
func (r *MarkReader) Mark(limit int) {
	// release the bytes already consumed
	r.buf = r.buf[r.off:]
	r.off = 0
	r.marked = true
	r.limit = max(limit, 0)
}

// Reset rewinds the reader to the mark and clears it. Bytes read since the mark
// are returned again by subsequent reads, followed by the rest of the source.
func (r *MarkReader) Reset() error {
	if !r.marked {
		return ErrNotMarked
	}
	r.pos -= int64(r.off)
	r.off = 0
	r.marked = false
	r.limit = 0
	return nil
}

// Marked reports whether a mark is set.
func (r *MarkReader) Marked() bool {
	return r.marked
}

// Limit returns the current mark limit, or 0 if no mark is set.
func (r *MarkReader) Limit() int {
	return r.limit
}

// BytesSinceMark returns the number of bytes consumed since the mark.
func (r *MarkReader) BytesSinceMark() int {
	if !r.marked {
		return 0
	}
	return r.off
}

// Offset returns the number of bytes consumed from the start of the source.
func (r *MarkReader) Offset() int64 {
	return r.pos
}

// fill makes sure that at least n unread bytes are buffered, if the source
// and the mark limit allow it.
func (r *MarkReader) fill(n int) error {
	want := r.off + n
	if r.marked && want > r.limit {
		want = r.limit
	}

	for len(r.buf) < want {
		if r.err != nil {
			return r.err
		}

		if cap(r.buf) < want {
			newBuf := make([]byte, len(r.buf), max(want, 2*cap(r.buf), 512))
			copy(newBuf, r.buf)
			r.buf = newBuf
		}

		m, err := r.src.Read(r.buf[len(r.buf):want])
		r.buf = r.buf[:len(r.buf)+m]
		if err != nil {
			r.err = err
		}
	}
	return nil
}

// end returns the end of the readable region of buf.
func (r *MarkReader) end() int {
	if r.marked {
		return min(len(r.buf), r.limit)
	}
	return len(r.buf)
}

// compact drops the consumed bytes when nothing needs to be replayed.
func (r *MarkReader) compact() {
	if !r.marked && r.off == len(r.buf) {
		r.buf = r.buf[:0]
		r.off = 0
	}
}

func (r *MarkReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	r.compact()

	if r.marked && r.off >= r.limit {
		return 0, ErrMarkLimitExceeded
	}

	if r.off == len(r.buf) {
		// read directly from the source when nothing needs to be recorded
		if !r.marked {
			if r.err != nil {
				return 0, r.err
			}
			n, err := r.src.Read(p)
			r.pos += int64(n)
			if err != nil {
				r.err = err
			}
			return n, err
		}

		if err := r.fill(len(p)); err != nil && r.off == len(r.buf) {
			return 0, err
		}
	}

	n := copy(p, r.buf[r.off:r.end()])
	r.off += n
	r.pos += int64(n)
	return n, nil
}

func (r *MarkReader) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// Peek returns the next n bytes without advancing the reader.
// If fewer than n bytes are available, Peek returns them together with
// the error that prevented reading more.
func (r *MarkReader) Peek(n int) ([]byte, error) {
	r.compact()

	err := r.fill(n)

	end := r.end()
	if end-r.off >= n {
		return r.buf[r.off : r.off+n], nil
	}
	if err == nil {
		// fill stopped at the mark limit
		err = ErrMarkLimitExceeded
	}
	return r.buf[r.off:end], err
}

// Discard skips the next n bytes.
func (r *MarkReader) Discard(n int64) (int64, error) {
	var discarded int64
	for discarded < n {
		if r.off == r.end() {
			err := r.fill(int(min(n-discarded, 64*1024)))
			if r.off == r.end() {
				if err == nil {
					err = ErrMarkLimitExceeded
				}
				return discarded, err
			}
		}
		m := min(int64(r.end()-r.off), n-discarded)
		r.off += int(m)
		r.pos += m
		discarded += m
		r.compact()
	}
	return discarded, nil
}
