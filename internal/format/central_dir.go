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
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"
)

var (
	ErrNoDirectory = errors.New("end of central directory record not found")
	ErrEntryLimit  = errors.New("central directory entry limit reached")
)

const (
	zipEndCentralDirSize    = 22
	zipEndCentralDir64Size  = 56
	zipEndCentralDirLocSize = 20
	zipMaxCommentLen        = 0xFFFF

	DefaultMaxEntries = 10000
)

// ZipCentralDirEntry is the fixed-size portion of a central directory file header,
// signature excluded.
type ZipCentralDirEntry struct {
	VersionMadeBy     uint16
	Version           uint16
	Flags             uint16
	Compression       uint16
	LastModTime       uint16
	LastModDate       uint16
	CRC32             uint32
	CompressedSize    uint32
	UncompressedSize  uint32
	FilenameLength    uint16
	ExtraLength       uint16
	CommentLength     uint16
	DiskNumberStart   uint16
	InternalAttrs     uint16
	ExternalAttrs     uint32
	LocalHeaderOffset uint32
}

// ZipEndCentralDir is the end of central directory record, signature excluded.
type ZipEndCentralDir struct {
	DiskNumber    uint16
	DirDiskNumber uint16
	DiskEntries   uint16
	TotalEntries  uint16
	DirSize       uint32
	DirOffset     uint32
	CommentLength uint16
}

// ZipEndCentralDir64 is the ZIP64 end of central directory record, signature excluded.
type ZipEndCentralDir64 struct {
	RecordSize    uint64
	VersionMadeBy uint16
	Version       uint16
	DiskNumber    uint32
	DirDiskNumber uint32
	DiskEntries   uint64
	TotalEntries  uint64
	DirSize       uint64
	DirOffset     uint64
}

// DirectoryOptions controls the central directory walk.
type DirectoryOptions struct {
	EntryOptions
	// MaxEntries caps the number of central directory records read.
	MaxEntries int
}

// Directory locates the central directory of a ZIP container.
type Directory struct {
	// Offset of the end of central directory record.
	EndOffset int64
	// Offset of the first central directory record.
	Offset int64
	Size   int64
	// BaseOffset is the number of bytes preceding the container, such as a
	// self-extracting stub.
	BaseOffset int64
	Entries    uint64
	Comment    []byte
}

// FindDirectory reads the end of central directory record of the container stored
// in the first size bytes of r, following the ZIP64 locator when present.
func FindDirectory(r io.ReaderAt, size int64) (*Directory, error) {
	eocdOffset, eocd, comment, err := findEndCentralDir(r, size)
	if err != nil {
		return nil, err
	}

	dir := &Directory{
		EndOffset: eocdOffset,
		Offset:    int64(eocd.DirOffset),
		Size:      int64(eocd.DirSize),
		Entries:   uint64(eocd.TotalEntries),
		Comment:   comment,
	}

	dirEnd := eocdOffset
	if eocd64Offset, eocd64, err := readEndCentralDir64(r, size, eocdOffset); err != nil {
		return nil, err
	} else if eocd64 != nil {
		dirEnd = eocd64Offset
		dir.Offset = int64(eocd64.DirOffset)
		dir.Size = int64(eocd64.DirSize)
		dir.Entries = eocd64.TotalEntries
	}

	if dir.Offset < 0 || dir.Size < 0 {
		return nil, fmt.Errorf("%w: central directory out of range", ErrInvalidZip)
	}

	dir.BaseOffset = dirEnd - dir.Size - dir.Offset
	if dir.BaseOffset < 0 || dir.BaseOffset+dir.Offset+dir.Size > size {
		return nil, fmt.Errorf("%w: central directory out of range", ErrInvalidZip)
	}
	dir.Offset += dir.BaseOffset
	return dir, nil
}

// findEndCentralDir searches the end of central directory record backwards
// from the end of the container, within the maximum comment length.
func findEndCentralDir(r io.ReaderAt, size int64) (int64, *ZipEndCentralDir, []byte, error) {
	if size < zipEndCentralDirSize {
		return 0, nil, nil, ErrNoDirectory
	}

	bufSize := min(size, zipEndCentralDirSize+zipMaxCommentLen)
	buf := make([]byte, bufSize)
	if _, err := r.ReadAt(buf, size-bufSize); err != nil && err != io.EOF {
		return 0, nil, nil, err
	}

	sig := binary.LittleEndian.AppendUint32(nil, ZipEndCentralDirHeader)
	for i := len(buf) - zipEndCentralDirSize; i >= 0; i-- {
		if !bytes.Equal(buf[i:i+4], sig) {
			continue
		}

		var eocd ZipEndCentralDir
		if _, err := binary.Decode(buf[i+4:i+zipEndCentralDirSize], binary.LittleEndian, &eocd); err != nil {
			return 0, nil, nil, err
		}

		// the comment must fit in the remaining bytes
		rest := buf[i+zipEndCentralDirSize:]
		if int(eocd.CommentLength) <= len(rest) {
			return size - bufSize + int64(i), &eocd, bytes.Clone(rest[:eocd.CommentLength]), nil
		}
	}
	return 0, nil, nil, ErrNoDirectory
}

// readEndCentralDir64 reads the ZIP64 end of central directory record referenced by
// the locator preceding the end of central directory record. It returns a nil record
// when no locator is present.
func readEndCentralDir64(r io.ReaderAt, size, eocdOffset int64) (int64, *ZipEndCentralDir64, error) {
	locOffset := eocdOffset - zipEndCentralDirLocSize
	if locOffset < 0 {
		return 0, nil, nil
	}

	var loc [zipEndCentralDirLocSize]byte
	if _, err := r.ReadAt(loc[:], locOffset); err != nil {
		return 0, nil, err
	}
	if binary.LittleEndian.Uint32(loc[:]) != ZipEndCentralDir64Locator {
		return 0, nil, nil
	}

	offset := int64(binary.LittleEndian.Uint64(loc[8:]))
	if offset < 0 || offset+zipEndCentralDir64Size > size {
		return 0, nil, fmt.Errorf("%w: zip64 end of central directory out of range", ErrInvalidZip)
	}

	var buf [zipEndCentralDir64Size]byte
	if _, err := r.ReadAt(buf[:], offset); err != nil {
		return 0, nil, err
	}
	if binary.LittleEndian.Uint32(buf[:]) != ZipEndCentralDir64Header {
		return 0, nil, fmt.Errorf("%w: invalid zip64 end of central directory signature", ErrInvalidZip)
	}

	var eocd64 ZipEndCentralDir64
	if _, err := binary.Decode(buf[4:], binary.LittleEndian, &eocd64); err != nil {
		return 0, nil, err
	}
	return offset, &eocd64, nil
}

// ResolveCentralDirectory lists the entries of the ZIP container stored in the first
// size bytes of r, in central directory order. The content of the entries selected by
// opts.WantContent is read from their local file headers.
//
// The sequence ends with ErrNoDirectory when the container has no end of central directory
// record, ErrInvalidZip when the directory is corrupt and ErrEntryLimit when it holds more
// than opts.MaxEntries records.
func ResolveCentralDirectory(r io.ReaderAt, size int64, opts DirectoryOptions) iter.Seq2[*ZipEntry, error] {
	return func(yield func(*ZipEntry, error) bool) {
		dir, err := FindDirectory(r, size)
		if err != nil {
			yield(nil, err)
			return
		}

		res := dirResolver{
			r:    r,
			size: size,
			dir:  dir,
			opts: opts.EntryOptions.withDefaults(),
		}

		maxEntries := opts.MaxEntries
		if maxEntries <= 0 {
			maxEntries = DefaultMaxEntries
		}

		br := bufio.NewReader(io.NewSectionReader(r, dir.Offset, dir.Size))
		for n := 0; ; n++ {
			var sig uint32
			err := binary.Read(br, binary.LittleEndian, &sig)
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, truncated(err))
				return
			}
			if sig != ZipCentralDirHeader {
				// digital signature or zip64 records may follow the last header
				return
			}

			if n == maxEntries {
				yield(nil, fmt.Errorf("%w: more than %d entries", ErrEntryLimit, maxEntries))
				return
			}

			entry, err := res.readDirEntry(br)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(entry, nil) {
				return
			}
		}
	}
}

type dirResolver struct {
	r    io.ReaderAt
	size int64
	dir  *Directory
	opts EntryOptions
}

func (d *dirResolver) readDirEntry(r io.Reader) (*ZipEntry, error) {
	var hdr ZipCentralDirEntry
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, truncated(err)
	}

	buf := make([]byte, int(hdr.FilenameLength)+int(hdr.ExtraLength)+int(hdr.CommentLength))
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, truncated(err)
	}

	entry := &ZipEntry{
		Name:             string(buf[:hdr.FilenameLength]),
		Method:           hdr.Compression,
		Flags:            hdr.Flags,
		CompressedSize:   uint64(hdr.CompressedSize),
		UncompressedSize: uint64(hdr.UncompressedSize),
	}

	localOffset := uint64(hdr.LocalHeaderOffset)
	readZip64Extra(buf[hdr.FilenameLength:int(hdr.FilenameLength)+int(hdr.ExtraLength)], entry, &localOffset)

	entry.Offset = d.dir.BaseOffset + int64(localOffset)
	if entry.Offset < 0 || entry.Offset >= d.size {
		return nil, fmt.Errorf("%w: local header of %q out of range", ErrInvalidZip, entry.Name)
	}

	if d.opts.wants(entry.Name) {
		entry.ContentErr = d.readEntryContent(entry)
	}
	return entry, nil
}

// readEntryContent decodes the first bytes of an entry, starting from its local file header.
func (d *dirResolver) readEntryContent(e *ZipEntry) error {
	if err := checkDecodable(e, d.opts.MaxCompressedSize); err != nil {
		return err
	}

	var buf [4 + 26]byte
	if _, err := d.r.ReadAt(buf[:], e.Offset); err != nil {
		return truncated(err)
	}
	if binary.LittleEndian.Uint32(buf[:]) != ZipFileEntryHeader {
		return fmt.Errorf("%w: invalid local header signature for %q", ErrInvalidZip, e.Name)
	}

	var hdr ZipFileEntry
	if _, err := binary.Decode(buf[4:], binary.LittleEndian, &hdr); err != nil {
		return err
	}

	dataOffset := e.Offset + int64(len(buf)) + int64(hdr.FilenameLength) + int64(hdr.ExtraLength)
	if dataOffset+int64(e.CompressedSize) > d.size {
		return fmt.Errorf("%w: data of %q out of range", ErrInvalidZip, e.Name)
	}

	content, err := readContent(e.Method, e.Flags, io.NewSectionReader(d.r, dataOffset, int64(e.CompressedSize)), e.UncompressedSize, d.opts.MaxContentSize)
	e.Content = content
	return err
}
