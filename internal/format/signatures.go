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
	"github.com/ostafen/zipsniff/pkg/mediatype"
	"github.com/ostafen/zipsniff/pkg/table"
)

// SignatureLen is the number of leading bytes the signature table looks at.
const SignatureLen = 16

// Signature maps a fixed leading byte pattern to a non-container media type.
type Signature struct {
	Type  mediatype.Type
	Desc  string
	Magic []byte
	// Verify, if set, must also accept the prefix for the signature to match.
	Verify func(prefix []byte) bool
}

// DefaultSignatures lists the non-container formats recognised before any
// container logic runs. ZIP magic is intentionally absent.
var DefaultSignatures = append(append([]Signature{}, tiffSignatures...), []Signature{
	{Type: mediatype.PNG, Desc: "Portable Network Graphics", Magic: []byte("\x89PNG\r\n\x1a\n")},
	{Type: mediatype.JPEG, Desc: "JPEG image", Magic: []byte{0xFF, 0xD8, 0xFF}},
	{Type: mediatype.GIF, Desc: "GIF87a image", Magic: []byte("GIF87a")},
	{Type: mediatype.GIF, Desc: "GIF89a image", Magic: []byte("GIF89a")},
	{Type: mediatype.PDF, Desc: "Portable Document Format", Magic: []byte("%PDF-")},
	{Type: mediatype.OLE2, Desc: "OLE2 compound document", Magic: []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}},
	{Type: mediatype.Gzip, Desc: "gzip stream", Magic: []byte{0x1F, 0x8B, 0x08}},
	{Type: mediatype.Bzip2, Desc: "bzip2 stream", Magic: []byte("BZh")},
	{Type: mediatype.XZ, Desc: "xz stream", Magic: []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}},
	{Type: mediatype.Zstd, Desc: "Zstandard frame", Magic: []byte{0x28, 0xB5, 0x2F, 0xFD}},
	{Type: mediatype.SevenZip, Desc: "7-Zip archive", Magic: []byte{'7', 'z', 0xBC, 0xAF, 0x27, 0x1C}},
	{Type: mediatype.RAR, Desc: "RAR 4 archive", Magic: []byte("Rar!\x1a\x07\x00")},
	{Type: mediatype.RAR, Desc: "RAR 5 archive", Magic: []byte("Rar!\x1a\x07\x01\x00")},
	{Type: mediatype.ELF, Desc: "ELF executable", Magic: []byte{0x7F, 'E', 'L', 'F'}},
	{Type: mediatype.Ogg, Desc: "Ogg container", Magic: []byte("OggS\x00")},
	{Type: mediatype.FLAC, Desc: "FLAC audio", Magic: []byte("fLaC")},
	{Type: mediatype.MIDI, Desc: "Standard MIDI file", Magic: []byte("MThd\x00\x00\x00\x06")},
	{Type: mediatype.WOFF, Desc: "Web Open Font Format", Magic: []byte("wOFF")},
	{Type: mediatype.WOFF2, Desc: "Web Open Font Format 2", Magic: []byte("wOF2")},
	{Type: mediatype.Matroska, Desc: "EBML container", Magic: []byte{0x1A, 0x45, 0xDF, 0xA3}},
}...)

// SignatureTable looks up the Signature matching the leading bytes of an input.
// It is immutable once built and safe for concurrent use.
type SignatureTable struct {
	table *table.PrefixTable[[]int]
	sigs  []Signature
}

// NewSignatureTable builds a table from sigs. When several signatures match
// the same input, the one declared first wins.
func NewSignatureTable(sigs ...Signature) *SignatureTable {
	t := &SignatureTable{
		table: table.New[[]int](),
		sigs:  append([]Signature(nil), sigs...),
	}

	for i, sig := range t.sigs {
		if len(sig.Magic) == 0 || len(sig.Magic) > SignatureLen {
			panic("format: signature magic must be 1 to 16 bytes long")
		}
		idxs, _ := t.table.Get(sig.Magic)
		t.table.Insert(sig.Magic, append(idxs, i))
	}
	return t
}

var defaultSignatureTable = NewSignatureTable(DefaultSignatures...)

// DefaultSignatureTable returns the shared table built from DefaultSignatures.
func DefaultSignatureTable() *SignatureTable {
	return defaultSignatureTable
}

// Match returns the signature matching prefix. Only the first SignatureLen
// bytes are considered; a signature longer than prefix never matches.
func (t *SignatureTable) Match(prefix []byte) (Signature, bool) {
	prefix = prefix[:min(len(prefix), SignatureLen)]

	best := -1
	t.table.Walk(prefix, func(_ []byte, idxs []int) bool {
		for _, i := range idxs {
			if best >= 0 && i > best {
				break
			}
			if sig := t.sigs[i]; sig.Verify == nil || sig.Verify(prefix) {
				best = i
				break
			}
		}
		return false
	})

	if best < 0 {
		return Signature{}, false
	}
	return t.sigs[best], true
}

// Signatures returns the signatures in declaration order.
func (t *SignatureTable) Signatures() []Signature {
	return append([]Signature(nil), t.sigs...)
}
