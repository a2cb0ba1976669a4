package format_test

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/ostafen/zipsniff/internal/format"
	"github.com/ostafen/zipsniff/internal/ziptest"
	"github.com/ostafen/zipsniff/pkg/reader"
	"github.com/stretchr/testify/require"
)

func resolve(t *testing.T, data []byte, opts format.DirectoryOptions) ([]*format.ZipEntry, error) {
	t.Helper()

	var entries []*format.ZipEntry
	for e, err := range format.ResolveCentralDirectory(bytes.NewReader(data), int64(len(data)), opts) {
		if err != nil {
			return entries, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func TestResolveCentralDirectory(t *testing.T) {
	data := ziptest.Build(t,
		ziptest.Filler("image.bin", 300*1024),
		ziptest.Deflated("mimetype", "application/vnd.oasis.opendocument.text"),
		ziptest.Text("content.xml", "<office:document-content/>"),
	)

	entries, err := resolve(t, data, format.DirectoryOptions{
		EntryOptions: format.EntryOptions{WantContent: func(name string) bool { return name == "mimetype" }},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"image.bin", "mimetype", "content.xml"}, names(entries))

	require.Equal(t, int64(0), entries[0].Offset)
	require.Equal(t, uint64(300*1024), entries[0].UncompressedSize)
	require.Equal(t, int64(30+9+300*1024), entries[1].Offset)
	require.Equal(t, format.MethodDeflate, entries[1].Method)
	require.Equal(t, []byte("application/vnd.oasis.opendocument.text"), entries[1].Content)
	require.Nil(t, entries[2].Content)

	// the same entries are found by the sequential scanner
	scanned, err := scan(t, data, 0, format.EntryOptions{})
	require.NoError(t, err)
	require.Equal(t, names(scanned), names(entries))
	for i := range entries {
		require.Equal(t, scanned[i].Offset, entries[i].Offset)
		require.Equal(t, scanned[i].CompressedSize, entries[i].CompressedSize)
	}
}

func TestResolveCentralDirectoryPrependedData(t *testing.T) {
	stub := append([]byte("MZ self-extracting stub"), reader.GenerateRandomBuffer(1000)...)
	data := append(stub, ziptest.Build(t,
		ziptest.Text("mimetype", "application/epub+zip"),
		ziptest.Text("OEBPS/content.opf", "<package/>"),
	)...)

	dir, err := format.FindDirectory(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Equal(t, int64(len(stub)), dir.BaseOffset)
	require.Equal(t, uint64(2), dir.Entries)

	entries, err := resolve(t, data, format.DirectoryOptions{EntryOptions: format.EntryOptions{WantContent: wantAll}})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, int64(len(stub)), entries[0].Offset)
	require.Equal(t, []byte("application/epub+zip"), entries[0].Content)
	require.Equal(t, []byte("<package/>"), entries[1].Content)
}

func TestResolveCentralDirectoryComment(t *testing.T) {
	data := ziptest.Build(t, ziptest.Text("a.txt", "a"))

	// a fake record whose comment would not fit in the file
	comment := append([]byte("PK\x05\x06"), make([]byte, 16)...)
	comment = append(comment, 0xFF, 0xFF)

	withComment := bytes.Clone(data)
	binary.LittleEndian.PutUint16(withComment[len(withComment)-2:], uint16(len(comment)))
	withComment = append(withComment, comment...)

	dir, err := format.FindDirectory(bytes.NewReader(withComment), int64(len(withComment)))
	require.NoError(t, err)
	require.Equal(t, int64(len(data)-22), dir.EndOffset)
	require.Equal(t, comment, dir.Comment)

	entries, err := resolve(t, withComment, format.DirectoryOptions{})
	require.NoError(t, err)
	require.Equal(t, []string{"a.txt"}, names(entries))
}

// toZip64 rewrites the end of central directory of data, which must have no
// comment, into a ZIP64 end of central directory record and locator.
func toZip64(t *testing.T, data []byte) []byte {
	eocdOffset := len(data) - 22

	var eocd format.ZipEndCentralDir
	_, err := binary.Decode(data[eocdOffset+4:], binary.LittleEndian, &eocd)
	require.NoError(t, err)

	var buf bytes.Buffer
	buf.Write(data[:eocdOffset])

	write := func(v any) {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, v))
	}

	write(format.ZipEndCentralDir64Header)
	write(format.ZipEndCentralDir64{
		RecordSize:    44,
		VersionMadeBy: 45,
		Version:       45,
		DiskEntries:   uint64(eocd.TotalEntries),
		TotalEntries:  uint64(eocd.TotalEntries),
		DirSize:       uint64(eocd.DirSize),
		DirOffset:     uint64(eocd.DirOffset),
	})

	write(format.ZipEndCentralDir64Locator)
	write(uint32(0))
	write(uint64(eocdOffset))
	write(uint32(1))

	write(format.ZipEndCentralDirHeader)
	write(format.ZipEndCentralDir{
		DiskEntries:  0xFFFF,
		TotalEntries: 0xFFFF,
		DirSize:      0xFFFFFFFF,
		DirOffset:    0xFFFFFFFF,
	})
	return buf.Bytes()
}

func TestResolveCentralDirectoryZip64(t *testing.T) {
	data := toZip64(t, ziptest.Build(t,
		ziptest.Text("a.txt", "a"),
		ziptest.Deflated("b.txt", "b"),
	))

	dir, err := format.FindDirectory(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Equal(t, uint64(2), dir.Entries)
	require.Zero(t, dir.BaseOffset)

	entries, err := resolve(t, data, format.DirectoryOptions{EntryOptions: format.EntryOptions{WantContent: wantAll}})
	require.NoError(t, err)
	require.Equal(t, []string{"a.txt", "b.txt"}, names(entries))
	require.Equal(t, []byte("b"), entries[1].Content)
}

func TestResolveCentralDirectoryMaxEntries(t *testing.T) {
	var entries []ziptest.Entry
	for i := range 10 {
		entries = append(entries, ziptest.Text(fmt.Sprintf("%d.txt", i), "x"))
	}
	data := ziptest.Build(t, entries...)

	found, err := resolve(t, data, format.DirectoryOptions{MaxEntries: 3})
	require.ErrorIs(t, err, format.ErrEntryLimit)
	require.Len(t, found, 3)

	found, err = resolve(t, data, format.DirectoryOptions{MaxEntries: 10})
	require.NoError(t, err)
	require.Len(t, found, 10)
}

func TestResolveCentralDirectoryErrors(t *testing.T) {
	_, err := resolve(t, nil, format.DirectoryOptions{})
	require.ErrorIs(t, err, format.ErrNoDirectory)

	_, err = resolve(t, reader.GenerateRandomBuffer(4096), format.DirectoryOptions{})
	require.Error(t, err)

	data := ziptest.Build(t, ziptest.Filler("a.bin", 4096), ziptest.Text("b.txt", "b"))

	_, err = resolve(t, data[:len(data)-100], format.DirectoryOptions{})
	require.ErrorIs(t, err, format.ErrNoDirectory)

	// central directory offset past the end of the file
	corrupt := bytes.Clone(data)
	binary.LittleEndian.PutUint32(corrupt[len(corrupt)-6:], 0x7FFFFFFF)
	_, err = resolve(t, corrupt, format.DirectoryOptions{})
	require.ErrorIs(t, err, format.ErrInvalidZip)

	// a corrupt local header only affects the content of its entry
	corrupt = bytes.Clone(data)
	copy(corrupt, "XXXX")
	entries, err := resolve(t, corrupt, format.DirectoryOptions{EntryOptions: format.EntryOptions{WantContent: wantAll, MaxCompressedSize: 8192}})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.ErrorIs(t, entries[0].ContentErr, format.ErrInvalidZip)
	require.Equal(t, []byte("b"), entries[1].Content)
}
