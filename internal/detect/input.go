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

package detect

import (
	"io"

	"github.com/ostafen/zipsniff/pkg/reader"
)

// Capability tells how an input can be read.
type Capability uint8

const (
	// Streaming inputs are read sequentially, within a mark limit.
	Streaming Capability = iota
	// Seekable inputs support random access.
	Seekable
)

func (c Capability) String() string {
	switch c {
	case Streaming:
		return "streaming"
	case Seekable:
		return "seekable"
	}
	return "invalid"
}

// Input is the byte source of a detection. An Input is used by one detection at a time.
type Input interface {
	Capability() Capability
	input()
}

// StreamInput is an input that can only be read sequentially.
// After a detection, reading from it yields the original bytes from the beginning.
type StreamInput struct {
	r *reader.MarkReader
}

// NewStreamInput wraps r. If r is a *reader.MarkReader, it is used as is.
func NewStreamInput(r io.Reader) *StreamInput {
	mr, ok := r.(*reader.MarkReader)
	if !ok {
		mr = reader.NewMarkReader(r)
	}
	return &StreamInput{r: mr}
}

func (in *StreamInput) Capability() Capability { return Streaming }

func (in *StreamInput) input() {}

// Reader returns the underlying bounded-prefix reader.
func (in *StreamInput) Reader() *reader.MarkReader {
	return in.r
}

func (in *StreamInput) Read(p []byte) (int, error) {
	return in.r.Read(p)
}

// SeekableInput is an input supporting random access, such as a file or a byte slice.
type SeekableInput struct {
	r    io.ReaderAt
	size int64
}

func NewSeekableInput(r io.ReaderAt, size int64) *SeekableInput {
	return &SeekableInput{r: r, size: size}
}

// BytesInput returns a seekable input reading from b.
func BytesInput(b []byte) *SeekableInput {
	return NewSeekableInput(bytesReaderAt(b), int64(len(b)))
}

func (in *SeekableInput) Capability() Capability { return Seekable }

func (in *SeekableInput) input() {}

func (in *SeekableInput) ReaderAt() io.ReaderAt {
	return in.r
}

func (in *SeekableInput) Size() int64 {
	return in.size
}

type bytesReaderAt []byte

func (b bytesReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, io.ErrUnexpectedEOF
	}
	if off >= int64(len(b)) {
		return 0, io.EOF
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// countingReaderAt records the number of bytes read through it.
type countingReaderAt struct {
	r io.ReaderAt
	n int64
}

func (c *countingReaderAt) ReadAt(p []byte, off int64) (int, error) {
	n, err := c.r.ReadAt(p, off)
	c.n += int64(n)
	return n, err
}
