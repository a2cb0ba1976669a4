package reader

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// oneByteReader forces the MarkReader to assemble its buffer from short reads.
type oneByteReader struct {
	r io.Reader
}

func (o *oneByteReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return o.r.Read(p[:1])
}

func TestMarkReaderUnmarked(t *testing.T) {
	data := GenerateRandomBuffer(10 * 1024)

	testChunkedReads(t, NewMarkReader(bytes.NewReader(data)), data)
	testChunkedReads(t, NewMarkReader(&oneByteReader{bytes.NewReader(data)}), data)
}

func TestMarkReaderResetReplaysPrefix(t *testing.T) {
	data := GenerateRandomBuffer(10 * 1024)

	r := NewMarkReader(&oneByteReader{bytes.NewReader(data)})
	r.Mark(4096)

	buf := make([]byte, 1000)
	_, err := io.ReadFull(r, buf)
	require.NoError(t, err)
	require.Equal(t, data[:1000], buf)
	require.Equal(t, 1000, r.BytesSinceMark())
	require.Equal(t, int64(1000), r.Offset())

	require.NoError(t, r.Reset())
	require.False(t, r.Marked())
	require.Equal(t, int64(0), r.Offset())

	testChunkedReads(t, r, data)
}

func TestMarkReaderLimit(t *testing.T) {
	data := GenerateRandomBuffer(8192)

	r := NewMarkReader(bytes.NewReader(data))
	r.Mark(100)
	require.Equal(t, 100, r.Limit())

	buf := make([]byte, 150)
	n, err := io.ReadFull(r, buf)
	require.ErrorIs(t, err, ErrMarkLimitExceeded)
	require.Equal(t, 100, n)
	require.Equal(t, data[:100], buf[:n])

	_, err = r.ReadByte()
	require.ErrorIs(t, err, ErrMarkLimitExceeded)

	_, err = r.Discard(1)
	require.ErrorIs(t, err, ErrMarkLimitExceeded)

	require.NoError(t, r.Reset())
	testChunkedReads(t, r, data)
}

func TestMarkReaderNeverReadsSourcePastLimit(t *testing.T) {
	src := bytes.NewReader(GenerateRandomBuffer(4096))

	r := NewMarkReader(src)
	r.Mark(256)

	_, err := r.Discard(1024)
	require.ErrorIs(t, err, ErrMarkLimitExceeded)
	require.Equal(t, int64(4096-256), int64(src.Len()))
}

func TestMarkReaderPeek(t *testing.T) {
	data := []byte("0123456789ABCDEFGHIJ")

	r := NewMarkReader(bytes.NewReader(data))
	r.Mark(10)

	p, err := r.Peek(4)
	require.NoError(t, err)
	require.Equal(t, []byte("0123"), p)
	require.Equal(t, 0, r.BytesSinceMark())

	p, err = r.Peek(16)
	require.ErrorIs(t, err, ErrMarkLimitExceeded)
	require.Equal(t, []byte("0123456789"), p)

	n, err := r.Discard(8)
	require.NoError(t, err)
	require.Equal(t, int64(8), n)

	p, err = r.Peek(2)
	require.NoError(t, err)
	require.Equal(t, []byte("89"), p)

	require.NoError(t, r.Reset())

	// unmarked peeks are bounded by the source only
	p, err = r.Peek(len(data) + 5)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, data, p)
}

func TestMarkReaderShortSource(t *testing.T) {
	r := NewMarkReader(bytes.NewReader([]byte("PK")))
	r.Mark(1024)

	p, err := r.Peek(4)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, []byte("PK"), p)

	_, err = r.Discard(3)
	require.True(t, errors.Is(err, io.EOF))
}

func TestMarkReaderResetWithoutMark(t *testing.T) {
	r := NewMarkReader(bytes.NewReader(nil))
	require.ErrorIs(t, r.Reset(), ErrNotMarked)
}

func TestMarkReaderRemark(t *testing.T) {
	data := GenerateRandomBuffer(512)

	r := NewMarkReader(bytes.NewReader(data))
	r.Mark(64)
	_, err := r.Discard(64)
	require.NoError(t, err)
	require.NoError(t, r.Reset())

	_, err = r.Discard(16)
	require.NoError(t, err)

	r.Mark(8)
	buf := make([]byte, 8)
	_, err = io.ReadFull(r, buf)
	require.NoError(t, err)
	require.Equal(t, data[16:24], buf)

	_, err = r.ReadByte()
	require.ErrorIs(t, err, ErrMarkLimitExceeded)

	require.NoError(t, r.Reset())
	testChunkedReads(t, r, data[16:])
}
