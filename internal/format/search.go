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

package format

import (
	"bytes"
	"io"

	"github.com/ostafen/zipsniff/pkg/reader"
)

const seekChunkSize = 32 * 1024

// SeekAt searches for a byte signature (`sig`) within the reader's stream,
// up to a maximum of `n` bytes from the current reader position.
// Consecutive peeks overlap by len(sig)-1 bytes, so that a signature spanning
// two chunks is still found. When the signature is found, the reader is positioned
// right at its beginning.
//
// Returns:
//
//	bool: True if the signature is found, false otherwise.
//	int64: The number of bytes skipped.
//	error: An error if an I/O error occurs during reading, other than io.EOF.
func SeekAt(r *reader.MarkReader, sig []byte, n int64) (bool, int64, error) {
	pad := len(sig) - 1

	var skipped int64
	for skipped <= n {
		peekBuf, err := r.Peek(seekChunkSize + pad)

		if idx := bytes.Index(peekBuf, sig); idx >= 0 {
			if int64(idx) > n-skipped {
				return false, skipped, nil
			}
			m, err := r.Discard(int64(idx))
			return err == nil, skipped + m, err
		}

		if err == io.EOF {
			return false, skipped, nil
		}
		if err != nil {
			return false, skipped, err
		}

		// keep the last pad bytes, which may hold the beginning of sig
		m, err := r.Discard(min(int64(len(peekBuf)-pad), n-skipped+1))
		skipped += m
		if err != nil {
			return false, skipped, err
		}
	}
	return false, skipped, nil
}
