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
	"compress/bzip2"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

// ZIP compression methods.
const (
	MethodStore   uint16 = 0
	MethodDeflate uint16 = 8
	MethodBzip2   uint16 = 12
	MethodLZMA    uint16 = 14
	MethodZstd    uint16 = 93
	MethodXZ      uint16 = 95
)

const (
	flagEncrypted  = 0x0001
	flagLZMAEOS    = 0x0002
	flagDescriptor = 0x0008
)

const zstdMaxWindow = 64 << 20

var (
	ErrUnsupportedCompression = errors.New("unsupported compression method")
	ErrEncrypted              = errors.New("entry is encrypted")
	ErrEntryTooLarge          = errors.New("entry exceeds the size ceiling")
)

// MethodName returns a short name for a compression method.
func MethodName(method uint16) string {
	switch method {
	case MethodStore:
		return "store"
	case MethodDeflate:
		return "deflate"
	case MethodBzip2:
		return "bzip2"
	case MethodLZMA:
		return "lzma"
	case MethodZstd:
		return "zstd"
	case MethodXZ:
		return "xz"
	}
	return fmt.Sprintf("method(%d)", method)
}

// SupportedMethod reports whether entries compressed with method can be decoded.
func SupportedMethod(method uint16) bool {
	switch method {
	case MethodStore, MethodDeflate, MethodBzip2, MethodLZMA, MethodZstd, MethodXZ:
		return true
	}
	return false
}

// checkDecodable returns the reason why the content of e must not be decoded, if any.
func checkDecodable(e *ZipEntry, maxCompressed int64) error {
	switch {
	case e.Flags&flagEncrypted != 0:
		return ErrEncrypted
	case !SupportedMethod(e.Method):
		return fmt.Errorf("%w: %s", ErrUnsupportedCompression, MethodName(e.Method))
	case e.CompressedSize > uint64(maxCompressed):
		return fmt.Errorf("%w: %d compressed bytes", ErrEntryTooLarge, e.CompressedSize)
	}
	return nil
}

type zstdReadCloser struct {
	*zstd.Decoder
}

func (z zstdReadCloser) Close() error {
	z.Decoder.Close()
	return nil
}

// newDecompressor returns a reader yielding the uncompressed bytes of an entry
// whose compressed data is read from r.
func newDecompressor(method, flags uint16, r io.Reader, uncompressedSize uint64) (io.ReadCloser, error) {
	switch method {
	case MethodStore:
		return io.NopCloser(r), nil
	case MethodDeflate:
		return flate.NewReader(r), nil
	case MethodBzip2:
		return io.NopCloser(bzip2.NewReader(r)), nil
	case MethodLZMA:
		lr, err := newZipLZMAReader(r, flags, uncompressedSize)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(lr), nil
	case MethodZstd:
		dec, err := zstd.NewReader(r,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderLowmem(true),
			zstd.WithDecoderMaxWindow(zstdMaxWindow),
		)
		if err != nil {
			return nil, err
		}
		return zstdReadCloser{dec}, nil
	case MethodXZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(xr), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedCompression, MethodName(method))
}

// newZipLZMAReader converts the ZIP flavour of the LZMA header (version,
// properties size, properties) into the classic 13-byte header.
func newZipLZMAReader(r io.Reader, flags uint16, uncompressedSize uint64) (io.Reader, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("lzma header: %w", err)
	}

	propsSize := binary.LittleEndian.Uint16(hdr[2:])
	if propsSize != 5 {
		return nil, fmt.Errorf("lzma header: unexpected properties size %d", propsSize)
	}

	var classic [13]byte
	if _, err := io.ReadFull(r, classic[:5]); err != nil {
		return nil, fmt.Errorf("lzma properties: %w", err)
	}

	size := uncompressedSize
	if flags&flagLZMAEOS != 0 {
		// the stream is terminated by an end marker
		size = ^uint64(0)
	}
	binary.LittleEndian.PutUint64(classic[5:], size)

	return lzma.NewReader(io.MultiReader(bytes.NewReader(classic[:]), r))
}

// readContent decodes at most limit bytes of an entry.
func readContent(method, flags uint16, r io.Reader, uncompressedSize uint64, limit int) ([]byte, error) {
	dec, err := newDecompressor(method, flags, r, uncompressedSize)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	content, err := io.ReadAll(io.LimitReader(dec, int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("decode %s entry: %w", MethodName(method), err)
	}
	return content, nil
}
