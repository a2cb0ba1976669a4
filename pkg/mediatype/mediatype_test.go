package mediatype_test

import (
	"testing"

	"github.com/ostafen/zipsniff/pkg/mediatype"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	require.Equal(t, mediatype.Zip, mediatype.Parse(" Application/ZIP; charset=binary"))
	require.Equal(t, mediatype.ODT, mediatype.Parse("application/vnd.oasis.opendocument.text"))
	require.Equal(t, "unknown", mediatype.Unknown.String())
	require.True(t, mediatype.Parse("").IsUnknown())
}

func TestStaticRegistry(t *testing.T) {
	reg := mediatype.DefaultRegistry

	require.True(t, reg.IsSpecializationOf(mediatype.PPTX, mediatype.OOXML))
	require.True(t, reg.IsSpecializationOf(mediatype.PPTX, mediatype.Zip))
	require.True(t, reg.IsSpecializationOf(mediatype.APK, mediatype.JAR))
	require.True(t, reg.IsSpecializationOf(mediatype.ODT, mediatype.OctetStream))

	require.False(t, reg.IsSpecializationOf(mediatype.Zip, mediatype.Zip))
	require.False(t, reg.IsSpecializationOf(mediatype.TIFF, mediatype.Zip))
	require.False(t, reg.IsSpecializationOf(mediatype.Zip, mediatype.OOXML))
	require.False(t, reg.IsSpecializationOf(mediatype.Unknown, mediatype.Zip))

	parent, ok := reg.Supertype(mediatype.DOCX)
	require.True(t, ok)
	require.Equal(t, mediatype.OOXML, parent)
}

func TestStaticRegistryCycle(t *testing.T) {
	reg := mediatype.NewStaticRegistry(map[mediatype.Type]mediatype.Type{
		"a/a": "b/b",
		"b/b": "a/a",
	})
	require.False(t, reg.IsSpecializationOf("a/a", "c/c"))
	require.True(t, reg.IsSpecializationOf("a/a", "b/b"))
}
