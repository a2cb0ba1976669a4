package pbar_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ostafen/zipsniff/pkg/pbar"
	"github.com/stretchr/testify/require"
)

func TestProgressBar(t *testing.T) {
	var buf bytes.Buffer

	p := pbar.New(&buf, 4)
	p.Add(1024, true)
	p.Add(2048, false)
	p.Render(true)

	line := buf.String()
	require.True(t, strings.HasPrefix(line, "\r[INFO] Progress: [=========="))
	require.Contains(t, line, " 50% (2/4)")
	require.Contains(t, line, "Matched: 1")

	// throttled
	buf.Reset()
	p.Render(false)
	require.Empty(t, buf.String())

	p.Add(0, true)
	p.Add(0, true)
	p.Finish()
	require.Contains(t, buf.String(), "[====================]")
	require.Contains(t, buf.String(), "100% (4/4)")
	require.True(t, strings.HasSuffix(buf.String(), "\n"))
}

func TestProgressBarNoInputs(t *testing.T) {
	var buf bytes.Buffer

	p := pbar.New(&buf, 0)
	p.Finish()
	require.Contains(t, buf.String(), "  0% (0/0)")
}
