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
	"io"
	"math/rand"
	"testing"
	"time"
)

// testChunkedReads reads r to the end using randomly sized reads and checks
// that the bytes returned match expected.
func testChunkedReads(t *testing.T, r io.Reader, expected []byte) {
	t.Helper()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var (
		got []byte
		buf [64]byte
	)
	for {
		readLen := rng.Intn(len(buf)) + 1

		n, err := r.Read(buf[:readLen])
		got = append(got, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("read failed after %d bytes: %v", len(got), err)
		}
	}

	if len(got) != len(expected) {
		t.Fatalf("read %d bytes, expected %d", len(got), len(expected))
	}
	for i := range got {
		if got[i] != expected[i] {
			t.Fatalf("mismatch at offset %d: got %x, expected %x", i, got[i], expected[i])
		}
	}
}

// GenerateRandomBuffer returns a random byte slice of the given size.
func GenerateRandomBuffer(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("failed to generate random data: " + err.Error())
	}
	return b
}
