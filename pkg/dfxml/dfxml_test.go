package dfxml_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ostafen/zipsniff/pkg/dfxml"
	"github.com/stretchr/testify/require"
)

func TestWriteAndReadReport(t *testing.T) {
	var buf bytes.Buffer

	w := dfxml.NewDFXMLWriter(&buf)
	require.NoError(t, w.WriteHeader(dfxml.DFXMLHeader{
		XmlOutput: dfxml.XmlOutputVersion,
		Metadata:  dfxml.DefaultMetadata,
		Creator: dfxml.Creator{
			Package:              "zipsniff",
			Version:              "dev",
			ExecutionEnvironment: dfxml.GetExecEnv(),
		},
		Source: dfxml.Source{Mode: "auto", MarkLimit: 1 << 20, MaxEntries: 10000},
	}))

	objects := []dfxml.FileObject{
		{
			Filename:  "report.odt",
			FileSize:  1024,
			MediaType: "application/vnd.oasis.opendocument.text",
			Classification: dfxml.Classification{
				State:      "definitive-match",
				Strategy:   "directory",
				Definitive: true,
				Entries:    1,
			},
		},
		{
			Filename:  "broken.zip",
			FileSize:  10,
			MediaType: "unknown",
			Classification: dfxml.Classification{
				State:    "unknown",
				Strategy: "stream",
				Error:    "invalid zip file",
			},
		},
	}
	for _, obj := range objects {
		require.NoError(t, w.WriteFileObject(obj))
	}
	require.NoError(t, w.Close())

	doc := buf.String()
	require.True(t, strings.HasPrefix(doc, "<?xml"))
	require.Equal(t, 1, strings.Count(doc, "<dfxml "))
	require.Contains(t, doc, `<dc:type>Media Type Report</dc:type>`)
	require.Contains(t, doc, `<classification state="definitive-match" strategy="directory" definitive="true">`)

	read, err := dfxml.ReadFileObjects(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, read, 2)

	for i := range read {
		read[i].XMLName = objects[i].XMLName
	}
	require.Equal(t, objects, read)
}

func TestReadFileObjectsError(t *testing.T) {
	_, err := dfxml.ReadFileObjects(strings.NewReader("<dfxml><fileobject><filesize>abc</filesize></fileobject></dfxml>"))
	require.Error(t, err)
}
