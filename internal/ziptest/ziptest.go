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

// Package ziptest builds ZIP containers for tests.
package ziptest

import (
	"archive/zip"
	"bytes"
	"hash/crc32"
	"io"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
	"github.com/ostafen/zipsniff/pkg/reader"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

// ZIP compression methods not registered by archive/zip.
const (
	Bzip2 uint16 = 12
	LZMA  uint16 = 14
	Zstd  uint16 = 93
	XZ    uint16 = 95
)

// Entry describes an entry of a test container.
type Entry struct {
	Name   string
	Data   []byte
	Method uint16
	// Descriptor writes the sizes in a data descriptor after the entry data.
	// Only zip.Store and zip.Deflate support it.
	Descriptor bool
	// Raw, when set, is written as the compressed data. Data is still used for
	// the checksum and the uncompressed size.
	Raw   []byte
	Flags uint16
}

// File returns a stored entry.
func File(name string, data []byte) Entry {
	return Entry{Name: name, Data: data, Method: zip.Store}
}

// Text returns a stored entry holding s.
func Text(name, s string) Entry {
	return File(name, []byte(s))
}

// Deflated returns a deflated entry holding s.
func Deflated(name, s string) Entry {
	return Entry{Name: name, Data: []byte(s), Method: zip.Deflate}
}

// Filler returns a stored entry of n random bytes.
func Filler(name string, n int) Entry {
	return File(name, reader.GenerateRandomBuffer(n))
}

// Build writes entries, in order, into a new ZIP container.
func Build(t testing.TB, entries ...Entry) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	for _, e := range entries {
		if e.Descriptor {
			fw, err := w.CreateHeader(&zip.FileHeader{Name: e.Name, Method: e.Method, Flags: e.Flags})
			require.NoError(t, err)

			_, err = fw.Write(e.Data)
			require.NoError(t, err)
			continue
		}

		raw := e.Raw
		flags := e.Flags
		if raw == nil {
			var extraFlags uint16
			raw, extraFlags = Compress(t, e.Method, e.Data)
			flags |= extraFlags
		}

		fw, err := w.CreateRaw(&zip.FileHeader{
			Name:               e.Name,
			Method:             e.Method,
			Flags:              flags,
			CRC32:              crc32.ChecksumIEEE(e.Data),
			CompressedSize64:   uint64(len(raw)),
			UncompressedSize64: uint64(len(e.Data)),
		})
		require.NoError(t, err)

		_, err = fw.Write(raw)
		require.NoError(t, err)
	}

	require.NoError(t, w.Close())
	return buf.Bytes()
}

// Compress encodes data with a ZIP compression method. It returns the general
// purpose flags the method requires.
func Compress(t testing.TB, method uint16, data []byte) ([]byte, uint16) {
	t.Helper()

	var buf bytes.Buffer
	switch method {
	case zip.Store:
		return data, 0
	case zip.Deflate:
		fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
		require.NoError(t, err)
		write(t, fw, data)
	case Zstd:
		enc, err := zstd.NewWriter(nil)
		require.NoError(t, err)
		defer enc.Close()
		return enc.EncodeAll(data, nil), 0
	case XZ:
		xw, err := xz.NewWriter(&buf)
		require.NoError(t, err)
		write(t, xw, data)
	case LZMA:
		return compressLZMA(t, data), 0x0002
	default:
		t.Fatalf("unsupported compression method %d", method)
	}
	return buf.Bytes(), 0
}

// compressLZMA writes data in the ZIP flavour of LZMA: version, properties size
// and properties, followed by a stream terminated by an end marker.
func compressLZMA(t testing.TB, data []byte) []byte {
	var classic bytes.Buffer
	lw, err := lzma.NewWriter(&classic)
	require.NoError(t, err)
	write(t, lw, data)

	// classic header: properties (5 bytes) and uncompressed size (8 bytes)
	out := classic.Bytes()
	require.GreaterOrEqual(t, len(out), 13)

	zipHeader := []byte{9, 20, 5, 0}
	return append(append(zipHeader, out[:5]...), out[13:]...)
}

func write(t testing.TB, w io.WriteCloser, data []byte) {
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

// Empty returns a container without entries.
func Empty(t testing.TB) []byte {
	return Build(t)
}
