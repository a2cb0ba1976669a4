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
	"encoding/binary"

	"github.com/ostafen/zipsniff/pkg/mediatype"
)

const (
	tiffHeaderLittle = "\x49\x49\x2A\x00"
	tiffHeaderBig    = "\x4D\x4D\x00\x2A"
	bigTiffLittle    = "\x49\x49\x2B\x00"
	bigTiffBig       = "\x4D\x4D\x00\x2B"

	tiffHeaderSize    = 8
	bigTiffHeaderSize = 16
)

var tiffSignatures = []Signature{
	{Type: mediatype.TIFF, Desc: "Tagged Image File Format (little endian)", Magic: []byte(tiffHeaderLittle), Verify: verifyTIFF},
	{Type: mediatype.TIFF, Desc: "Tagged Image File Format (big endian)", Magic: []byte(tiffHeaderBig), Verify: verifyTIFF},
	{Type: mediatype.TIFF, Desc: "BigTIFF (little endian)", Magic: []byte(bigTiffLittle), Verify: verifyTIFF},
	{Type: mediatype.TIFF, Desc: "BigTIFF (big endian)", Magic: []byte(bigTiffBig), Verify: verifyTIFF},
}

// verifyTIFF checks the header that follows the two-byte endianness marker:
// the magic number (42, or 43 for BigTIFF) and the offset of the first IFD.
func verifyTIFF(prefix []byte) bool {
	if len(prefix) < tiffHeaderSize {
		return false
	}

	var byteOrder binary.ByteOrder
	switch string(prefix[0:2]) {
	case "II":
		byteOrder = binary.LittleEndian
	case "MM":
		byteOrder = binary.BigEndian
	default:
		return false
	}

	switch byteOrder.Uint16(prefix[2:4]) {
	case 42:
		return byteOrder.Uint32(prefix[4:8]) >= tiffHeaderSize
	case 43:
		// BigTIFF: offset byte size, a zero word, then a 64-bit IFD offset
		if len(prefix) < bigTiffHeaderSize {
			return false
		}
		return byteOrder.Uint16(prefix[4:6]) == 8 &&
			byteOrder.Uint16(prefix[6:8]) == 0 &&
			byteOrder.Uint64(prefix[8:16]) >= bigTiffHeaderSize
	}
	return false
}
