package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseBytes(t *testing.T) {
	cases := map[string]uint64{
		"4096":   4096,
		"0":      0,
		"100B":   100,
		"128KB":  128 * KB,
		"128kib": 128 * KB,
		"1MB":    MB,
		"1.5M":   MB + MB/2,
		"4 GB":   4 * GB,
		"2T":     2 * TB,
	}
	for in, expected := range cases {
		got, err := ParseBytes(in)
		require.NoError(t, err, in)
		require.Equal(t, expected, got, in)
	}

	for _, in := range []string{"", "MB", "abc", "-1KB", "1XB"} {
		_, err := ParseBytes(in)
		require.Error(t, err, in)
	}
}

func TestFormatBytes(t *testing.T) {
	require.Equal(t, "512B", FormatBytes(512))
	require.Equal(t, "1KB", FormatBytes(KB))
	require.Equal(t, "1.50MB", FormatBytes(MB+MB/2))
	require.Equal(t, "4GB", FormatBytes(4*GB))
}
