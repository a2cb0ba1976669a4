package table_test

import (
	"testing"

	"github.com/ostafen/zipsniff/pkg/table"
	"github.com/stretchr/testify/require"
)

func collect(t *table.PrefixTable[string], data []byte) []string {
	var found []string
	t.Walk(data, func(_ []byte, v string) bool {
		found = append(found, v)
		return false
	})
	return found
}

func TestPrefixTableWalk(t *testing.T) {
	tbl := table.New[string]()
	tbl.Insert([]byte("BZh"), "bzip2")
	tbl.Insert([]byte{0x1F, 0x8B}, "gzip")
	tbl.Insert([]byte("II*\x00"), "tiff-le")
	tbl.Insert([]byte("II"), "short")

	require.Equal(t, 4, tbl.Size())
	require.Equal(t, 4, tbl.MaxKeyLen())

	require.Equal(t, []string{"short", "tiff-le"}, collect(tbl, []byte("II*\x00\x08\x00\x00\x00")))
	require.Equal(t, []string{"gzip"}, collect(tbl, []byte{0x1F, 0x8B, 0x08}))
	require.Equal(t, []string{"bzip2"}, collect(tbl, []byte("BZh91AY")))
	require.Empty(t, collect(tbl, []byte("PK\x03\x04")))
	require.Empty(t, collect(tbl, []byte("B")))
	require.Empty(t, collect(tbl, nil))
}

func TestPrefixTableWalkStops(t *testing.T) {
	tbl := table.New[int]()
	tbl.Insert([]byte("a"), 1)
	tbl.Insert([]byte("ab"), 2)

	var calls int
	tbl.Walk([]byte("abc"), func(key []byte, v int) bool {
		calls++
		require.Equal(t, "a", string(key))
		return true
	})
	require.Equal(t, 1, calls)
}

func TestPrefixTableKeys(t *testing.T) {
	tbl := table.New[int]()
	tbl.Insert([]byte("b"), 1)
	tbl.Insert([]byte("a"), 2)
	tbl.Insert([]byte("a"), 3)

	require.Equal(t, [][]byte{[]byte("a"), []byte("b")}, tbl.Keys())

	v, ok := tbl.Get([]byte("a"))
	require.True(t, ok)
	require.Equal(t, 3, v)
}
