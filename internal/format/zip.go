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
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/ostafen/zipsniff/pkg/reader"
)

var (
	ErrInvalidZip = errors.New("invalid zip file")
	// ErrEntryBoundary is returned when the end of an entry written with a
	// data descriptor cannot be located, so the scan cannot go on.
	ErrEntryBoundary = errors.New("cannot locate the end of a zip entry")
)

const (
	// ZipSignature4 represents the standard 4-byte signature for a local file header in a ZIP file.
	ZipSignature4 uint32 = 0x04034B50 // ['P', 'K', 0x03, 0x04]
	// ZipSignature8 represents the 8-byte signature for a WinZIPv8-compressed file,
	// which includes a repeating 'PK' signature.
	ZipSignature8 uint64 = 0x04034B5030304B50 // ['P', 'K', '0', '0', 'P', 'K', 0x03, 0x04]
	// ZipSpannedSignature8 is the marker of a spanned archive followed by the first local file header.
	ZipSpannedSignature8 uint64 = 0x04034B5008074B50 // ['P', 'K', 0x07, 0x08, 'P', 'K', 0x03, 0x04]

	// ZipCentralDirHeader is the signature for a central directory file header.
	ZipCentralDirHeader uint32 = 0x02014B50
	// ZipFileEntryHeader is the signature for a local file header.
	ZipFileEntryHeader uint32 = 0x04034B50
	// ZipEndCentralDirHeader is the signature for the end of central directory record.
	ZipEndCentralDirHeader uint32 = 0x06054B50
	// ZipEndCentralDir64Header is the signature for the ZIP64 end of central directory record.
	ZipEndCentralDir64Header uint32 = 0x06064B50
	// ZipEndCentralDir64Locator is the signature for the ZIP64 end of central directory locator.
	ZipEndCentralDir64Locator uint32 = 0x07064B50
	// ZipDataDescriptorHeader is the signature for a data descriptor, used when the CRC-32
	// and sizes are not known at the time the local file header is written.
	ZipDataDescriptorHeader uint32 = 0x08074B50
	// ZipDigitalSignatureHeader is the signature of the central directory digital signature.
	ZipDigitalSignatureHeader uint32 = 0x05054B50

	zip64ExtraID = 0x0001
	uint32Max    = 0xFFFFFFFF
)

// ZipFileEntrySize is the size of the fixed portion of a local file header,
// signature excluded.
var ZipFileEntrySize = binary.Size(ZipFileEntry{})

// ZipFileEntry represents the structure of a local file header in a ZIP file.
// This struct is used for reading and parsing the fixed-size portion of a file entry.
type ZipFileEntry struct {
	Version          uint16 // Minimum version needed to extract
	Flags            uint16 // General purpose bit flag
	Compression      uint16 // Compression method
	LastModTime      uint16 // File last modification time
	LastModDate      uint16 // File last modification date
	CRC32            uint32 // CRC-32 of uncompressed data
	CompressedSize   uint32 // Compressed size
	UncompressedSize uint32 // Uncompressed size
	FilenameLength   uint16 // Length of filename
	ExtraLength      uint16 // Length of extra field
}

// ZipEntry describes an entry of a ZIP container.
type ZipEntry struct {
	Name             string
	Method           uint16
	Flags            uint16
	CompressedSize   uint64
	UncompressedSize uint64
	// Offset of the local file header within the container.
	Offset int64

	// Content holds the first bytes of the decoded entry, when they were requested
	// and could be decoded.
	Content []byte
	// ContentErr tells why requested content could not be decoded.
	ContentErr error
}

// HasDataDescriptor reports whether the sizes of the entry follow its data.
func (e *ZipEntry) HasDataDescriptor() bool {
	return e.Flags&flagDescriptor != 0
}

const (
	DefaultMaxContentSize    = 64 * 1024
	DefaultMaxCompressedSize = 1024 * 1024
	DefaultMaxDrainSize      = 16 * 1024 * 1024
)

// EntryOptions controls which entries are decoded while scanning.
type EntryOptions struct {
	// WantContent selects the entries whose content is decoded. Nil means none.
	WantContent func(name string) bool
	// MaxContentSize caps the number of decoded bytes kept per entry.
	MaxContentSize int
	// MaxCompressedSize is the safety ceiling above which an entry is never decoded.
	MaxCompressedSize int64
	// MaxDrainSize caps the number of bytes inflated to skip an entry written
	// with a data descriptor.
	MaxDrainSize int64
}

func (o EntryOptions) withDefaults() EntryOptions {
	if o.MaxContentSize <= 0 {
		o.MaxContentSize = DefaultMaxContentSize
	}
	if o.MaxCompressedSize <= 0 {
		o.MaxCompressedSize = DefaultMaxCompressedSize
	}
	if o.MaxDrainSize <= 0 {
		o.MaxDrainSize = DefaultMaxDrainSize
	}
	return o
}

func (o EntryOptions) wants(name string) bool {
	return o.WantContent != nil && o.WantContent(name)
}

// IsZipMagic reports whether prefix starts with one of the leading signatures
// of a ZIP container. empty is true for an archive without entries.
func IsZipMagic(prefix []byte) (ok, empty bool) {
	if len(prefix) < 4 {
		return false, false
	}

	switch binary.LittleEndian.Uint32(prefix) {
	case ZipSignature4:
		return true, false
	case ZipEndCentralDirHeader:
		return true, true
	}

	if len(prefix) >= 8 {
		switch binary.LittleEndian.Uint64(prefix) {
		case ZipSignature8, ZipSpannedSignature8:
			return true, false
		}
	}
	return false, false
}

// ScanEntries reads the local file headers of a ZIP container from r, in
// container order. The sequence ends without error at the central directory.
//
// Any error ends the sequence: reader.ErrMarkLimitExceeded when the scan reached the
// mark limit of r, ErrInvalidZip for corrupt or truncated records, ErrEntryBoundary
// when an entry cannot be skipped, or the error returned by the underlying source.
// Content decoding failures do not stop the scan; they are reported in ZipEntry.ContentErr.
func ScanEntries(r *reader.MarkReader, opts EntryOptions) iter.Seq2[*ZipEntry, error] {
	return func(yield func(*ZipEntry, error) bool) {
		dec := zipDecoder{
			r:     r,
			opts:  opts.withDefaults(),
			start: r.Offset(),
		}

		if err := dec.readHeader(); err != nil {
			yield(nil, err)
			return
		}

		for {
			sig, err := dec.readSignature()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}

			switch sig {
			case ZipFileEntryHeader:
				entry, err := dec.parseZipFileEntry()
				if entry != nil && !yield(entry, nil) {
					return
				}
				if err != nil {
					yield(nil, err)
					return
				}
			case ZipCentralDirHeader, ZipEndCentralDirHeader, ZipEndCentralDir64Header, ZipDigitalSignatureHeader:
				return
			default:
				yield(nil, fmt.Errorf("%w: unexpected signature 0x%08x at offset %d", ErrInvalidZip, sig, dec.offset()-4))
				return
			}
		}
	}
}

type zipDecoder struct {
	r     *reader.MarkReader
	opts  EntryOptions
	start int64
}

func (d *zipDecoder) offset() int64 {
	return d.r.Offset() - d.start
}

func (d *zipDecoder) readHeader() error {
	buf, err := d.r.Peek(8)
	if len(buf) < 4 {
		if err == nil || err == io.EOF {
			return fmt.Errorf("%w: invalid signature", ErrInvalidZip)
		}
		return err
	}

	ok, _ := IsZipMagic(buf)
	if !ok {
		return fmt.Errorf("%w: invalid signature", ErrInvalidZip)
	}

	// skip the spanning marker preceding the first local file header
	if sig4 := binary.LittleEndian.Uint32(buf); sig4 != ZipSignature4 && sig4 != ZipEndCentralDirHeader {
		_, err = d.r.Discard(4)
	}
	return err
}

func (d *zipDecoder) readSignature() (uint32, error) {
	var buf [4]byte
	n, err := io.ReadFull(d.r, buf[:])
	if n == 0 && err == io.EOF {
		return 0, io.EOF
	}
	if err != nil {
		return 0, truncated(err)
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// truncated maps an unexpected end of input to ErrInvalidZip.
func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: truncated record: %v", ErrInvalidZip, err)
	}
	return err
}

// parseZipFileEntry parses a single local file entry in a ZIP file.
// It reads the fixed-size ZipFileEntry struct, followed by the filename and extra fields,
// then decodes or skips the file data. A non-nil entry may be returned together with an
// error when the entry header is valid but its data cannot be skipped.
func (d *zipDecoder) parseZipFileEntry() (*ZipEntry, error) {
	offset := d.offset() - 4

	var hdr ZipFileEntry
	if err := binary.Read(d.r, binary.LittleEndian, &hdr); err != nil {
		return nil, truncated(err)
	}

	nameAndExtra := make([]byte, int(hdr.FilenameLength)+int(hdr.ExtraLength))
	if _, err := io.ReadFull(d.r, nameAndExtra); err != nil {
		return nil, truncated(err)
	}

	entry := &ZipEntry{
		Name:             string(nameAndExtra[:hdr.FilenameLength]),
		Method:           hdr.Compression,
		Flags:            hdr.Flags,
		CompressedSize:   uint64(hdr.CompressedSize),
		UncompressedSize: uint64(hdr.UncompressedSize),
		Offset:           offset,
	}

	zip64 := readZip64Extra(nameAndExtra[hdr.FilenameLength:], entry, nil)

	if entry.HasDataDescriptor() {
		return entry, d.skipDescriptorEntry(entry, zip64)
	}

	if d.opts.wants(entry.Name) {
		return entry, d.readEntryContent(entry)
	}

	if _, err := d.r.Discard(int64(entry.CompressedSize)); err != nil {
		return entry, truncated(err)
	}
	return entry, nil
}

// readEntryContent consumes the data of an entry of known size, decoding it
// when the entry is small enough and its compression method is supported.
func (d *zipDecoder) readEntryContent(e *ZipEntry) error {
	if e.ContentErr = checkDecodable(e, d.opts.MaxCompressedSize); e.ContentErr != nil {
		_, err := d.r.Discard(int64(e.CompressedSize))
		return truncated(err)
	}

	data := make([]byte, e.CompressedSize)
	if _, err := io.ReadFull(d.r, data); err != nil {
		return truncated(err)
	}
	e.Content, e.ContentErr = readContent(e.Method, e.Flags, bytes.NewReader(data), e.UncompressedSize, d.opts.MaxContentSize)
	return nil
}

// skipDescriptorEntry moves past the data of an entry whose sizes are stored in
// a data descriptor after it.
func (d *zipDecoder) skipDescriptorEntry(e *ZipEntry, zip64 bool) error {
	switch e.Method {
	case MethodStore:
		return d.skipStoredDescriptorEntry(e, zip64)
	case MethodDeflate:
		return d.skipDeflatedDescriptorEntry(e, zip64)
	}
	if d.opts.wants(e.Name) {
		e.ContentErr = fmt.Errorf("%w: %s with data descriptor", ErrUnsupportedCompression, MethodName(e.Method))
	}
	return fmt.Errorf("%w: %q uses %s with a data descriptor", ErrEntryBoundary, e.Name, MethodName(e.Method))
}

// skipDeflatedDescriptorEntry inflates the entry up to the end of its deflate
// stream, which the decoder detects without knowing the compressed size.
func (d *zipDecoder) skipDeflatedDescriptorEntry(e *ZipEntry, zip64 bool) error {
	if e.Flags&flagEncrypted != 0 {
		return fmt.Errorf("%w: %q is encrypted", ErrEntryBoundary, e.Name)
	}

	start := d.r.Offset()

	// r implements io.ByteReader, so the decompressor never reads past the
	// end of the deflate stream.
	dec, err := newDecompressor(MethodDeflate, e.Flags, d.r, 0)
	if err != nil {
		return err
	}
	defer dec.Close()

	if d.opts.wants(e.Name) {
		e.Content, err = io.ReadAll(io.LimitReader(dec, int64(d.opts.MaxContentSize)))
		if err != nil {
			return d.inflateError(e, err)
		}
	}

	n, err := io.Copy(io.Discard, io.LimitReader(dec, d.opts.MaxDrainSize+1))
	if err != nil {
		return d.inflateError(e, err)
	}
	if n > d.opts.MaxDrainSize {
		e.Content = nil
		return fmt.Errorf("%w: %q inflates past %d bytes", ErrEntryBoundary, e.Name, d.opts.MaxDrainSize)
	}

	e.CompressedSize = uint64(d.r.Offset() - start)
	return d.skipDataDescriptor(zip64)
}

func (d *zipDecoder) inflateError(e *ZipEntry, err error) error {
	e.Content = nil
	if errors.Is(err, reader.ErrMarkLimitExceeded) {
		return err
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return truncated(err)
	}
	return fmt.Errorf("%w: corrupt deflate stream in %q: %v", ErrInvalidZip, e.Name, err)
}

// skipStoredDescriptorEntry searches for the data descriptor following a stored
// entry. A candidate descriptor is accepted only if its compressed size matches
// the number of bytes skipped.
func (d *zipDecoder) skipStoredDescriptorEntry(e *ZipEntry, zip64 bool) error {
	var head []byte
	if d.opts.wants(e.Name) {
		if e.Flags&flagEncrypted != 0 {
			e.ContentErr = ErrEncrypted
		} else {
			p, _ := d.r.Peek(d.opts.MaxContentSize)
			head = bytes.Clone(p)
		}
	}

	sig := binary.LittleEndian.AppendUint32(nil, ZipDataDescriptorHeader)

	var skipped int64
	for skipped <= d.opts.MaxDrainSize {
		found, n, err := SeekAt(d.r, sig, d.opts.MaxDrainSize-skipped)
		skipped += n
		if err != nil {
			return truncated(err)
		}
		if !found {
			break
		}

		size, usize, err := d.peekDescriptorSizes(zip64)
		if err != nil {
			return err
		}

		if uint64(skipped) == size {
			e.CompressedSize = size
			e.UncompressedSize = usize
			if head != nil {
				e.Content = head[:min(len(head), int(skipped))]
			}
			return d.skipDataDescriptor(zip64)
		}

		// the signature is part of the entry data
		if _, err := d.r.Discard(4); err != nil {
			return truncated(err)
		}
		skipped += 4
	}
	return fmt.Errorf("%w: data descriptor of %q not found", ErrEntryBoundary, e.Name)
}

// peekDescriptorSizes returns the sizes stored in the data descriptor the
// reader is positioned at, signature included.
func (d *zipDecoder) peekDescriptorSizes(zip64 bool) (uint64, uint64, error) {
	if !zip64 {
		desc, err := d.r.Peek(16)
		if err != nil {
			return 0, 0, truncated(err)
		}
		return uint64(binary.LittleEndian.Uint32(desc[8:])), uint64(binary.LittleEndian.Uint32(desc[12:])), nil
	}

	desc, err := d.r.Peek(24)
	if err != nil {
		return 0, 0, truncated(err)
	}
	return binary.LittleEndian.Uint64(desc[8:]), binary.LittleEndian.Uint64(desc[16:]), nil
}

// skipDataDescriptor skips a data descriptor, with or without its optional signature.
func (d *zipDecoder) skipDataDescriptor(zip64 bool) error {
	buf, err := d.r.Peek(4)
	if err != nil {
		return truncated(err)
	}
	if binary.LittleEndian.Uint32(buf) == ZipDataDescriptorHeader {
		if _, err := d.r.Discard(4); err != nil {
			return truncated(err)
		}
	}

	// CRC-32 followed by the two sizes
	size := int64(12)
	if zip64 {
		size = 20
	}
	_, err = d.r.Discard(size)
	return truncated(err)
}

// readZip64Extra replaces the saturated size (and offset) fields of e with the values
// stored in the ZIP64 extended information extra field. It reports whether the field
// was found.
func readZip64Extra(extra []byte, e *ZipEntry, localOffset *uint64) bool {
	for len(extra) >= 4 {
		tag := binary.LittleEndian.Uint16(extra)
		size := int(binary.LittleEndian.Uint16(extra[2:]))
		extra = extra[4:]
		if size > len(extra) {
			return false
		}

		field := extra[:size]
		extra = extra[size:]
		if tag != zip64ExtraID {
			continue
		}

		next := func(v *uint64) {
			if *v == uint32Max && len(field) >= 8 {
				*v = binary.LittleEndian.Uint64(field)
				field = field[8:]
			}
		}
		next(&e.UncompressedSize)
		next(&e.CompressedSize)
		if localOffset != nil {
			next(localOffset)
		}
		return true
	}
	return false
}
