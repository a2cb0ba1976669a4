package detect_test

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"testing/iotest"

	"github.com/ostafen/zipsniff/internal/detect"
	"github.com/ostafen/zipsniff/internal/format"
	"github.com/ostafen/zipsniff/internal/ziptest"
	"github.com/ostafen/zipsniff/pkg/mediatype"
	"github.com/ostafen/zipsniff/pkg/reader"
	"github.com/stretchr/testify/require"
)

const (
	pagesIndex   = `<?xml version="1.0"?><sl:document xmlns:sl="http://developer.apple.com/namespaces/sl" sl:version="92008102400">`
	contentTypes = `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="xml" ContentType="application/xml"/></Types>`
	xpsTypes     = `<Types><Default Extension="fdseq" ContentType="application/vnd.ms-package.xps-fixeddocumentsequence+xml"/></Types>`
)

var (
	tiffLE = append([]byte("II*\x00\x08\x00\x00\x00"), make([]byte, 64)...)
	tiffBE = append([]byte("MM\x00*\x00\x00\x00\x08"), make([]byte, 64)...)
	png    = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)
)

func odt(t testing.TB) []byte {
	return ziptest.Build(t,
		ziptest.Text("mimetype", string(mediatype.ODT)),
		ziptest.Deflated("content.xml", "<office:document-content/>"),
		ziptest.Deflated("META-INF/manifest.xml", "<manifest:manifest/>"),
	)
}

// pages stores its index after a large entry.
func pages(t testing.TB) []byte {
	return ziptest.Build(t,
		ziptest.Filler("Data/image.bin", 200*1024),
		ziptest.Deflated("index.xml", pagesIndex),
	)
}

func detectStream(d *detect.Detector, data []byte) detect.Result {
	return d.Detect(detect.NewStreamInput(bytes.NewReader(data)))
}

func detectSeekable(d *detect.Detector, data []byte) detect.Result {
	return d.Detect(detect.BytesInput(data))
}

type fixture struct {
	name       string
	data       []byte
	want       mediatype.Type
	definitive bool
}

func fixtures(t testing.TB) []fixture {
	return []fixture{
		{"odt", odt(t), mediatype.ODT, true},
		{"epub", ziptest.Build(t,
			ziptest.Text("mimetype", string(mediatype.EPUB)),
			ziptest.Deflated("META-INF/container.xml", "<container/>"),
		), mediatype.EPUB, true},
		{"pages", pages(t), mediatype.Pages, true},
		{"ooxml", ziptest.Build(t,
			ziptest.Deflated("[Content_Types].xml", contentTypes),
		), mediatype.OOXML, false},
		{"pptx", ziptest.Build(t,
			ziptest.Deflated("[Content_Types].xml", contentTypes),
			ziptest.Deflated("ppt/presentation.xml", "<p:presentation/>"),
		), mediatype.PPTX, false},
		{"docx main part", ziptest.Build(t,
			ziptest.Deflated("[Content_Types].xml", `<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>`),
			ziptest.Deflated("word/document.xml", "<w:document/>"),
		), mediatype.DOCX, false},
		{"xps", ziptest.Build(t,
			ziptest.Deflated("[Content_Types].xml", xpsTypes),
			ziptest.Deflated("FixedDocSeq.fdseq", "<FixedDocumentSequence/>"),
		), mediatype.XPS, true},
		{"jar", ziptest.Build(t,
			ziptest.Deflated("META-INF/MANIFEST.MF", "Manifest-Version: 1.0\n"),
			ziptest.Deflated("org/example/Main.class", "\xca\xfe\xba\xbe"),
		), mediatype.JAR, false},
		{"apk", ziptest.Build(t,
			ziptest.Deflated("META-INF/MANIFEST.MF", "Manifest-Version: 1.0\n"),
			ziptest.Deflated("classes.dex", "dex\n035\x00"),
			ziptest.Deflated("AndroidManifest.xml", "\x03\x00\x08\x00"),
		), mediatype.APK, true},
		{"zip", ziptest.Build(t,
			ziptest.Deflated("readme.txt", "hello"),
			ziptest.Filler("data.bin", 4096),
		), mediatype.Zip, false},
		{"empty", ziptest.Empty(t), mediatype.Zip, false},
		{"tiff le", tiffLE, mediatype.TIFF, true},
		{"tiff be", tiffBE, mediatype.TIFF, true},
		{"png", png, mediatype.PNG, true},
		{"text", []byte("just some text, not a container"), mediatype.Unknown, false},
		{"short", []byte("PK"), mediatype.Unknown, false},
		{"nothing", nil, mediatype.Unknown, false},
	}
}

func TestDetect(t *testing.T) {
	d := detect.New()

	for _, fx := range fixtures(t) {
		t.Run(fx.name, func(t *testing.T) {
			for _, res := range []detect.Result{detectStream(d, fx.data), detectSeekable(d, fx.data)} {
				require.Equal(t, fx.want, res.Type, res.Strategy)
				require.Equal(t, fx.definitive, res.Definitive, res.Strategy)
				require.True(t, res.State.Terminal())
			}
		})
	}
}

func TestDetectStates(t *testing.T) {
	d := detect.New()

	res := detectStream(d, png)
	require.Equal(t, detect.StateDefinitiveMatch, res.State)
	require.Equal(t, detect.StrategySignature, res.Strategy)

	res = detectStream(d, odt(t))
	require.Equal(t, detect.StateDefinitiveMatch, res.State)
	require.Equal(t, detect.StrategyStream, res.Strategy)
	require.Equal(t, 1, res.Entries)

	res = detectSeekable(d, odt(t))
	require.Equal(t, detect.StateDefinitiveMatch, res.State)
	require.Equal(t, detect.StrategyDirectory, res.Strategy)
	require.Equal(t, 1, res.Entries)

	res = detectSeekable(d, ziptest.Empty(t))
	require.Equal(t, detect.StateGenericFallback, res.State)
	require.Equal(t, 0, res.Entries)

	res = detectStream(d, []byte("%!PS-Adobe-3.0"))
	require.Equal(t, detect.StateUnknown, res.State)
	require.NoError(t, res.Err)
}

func TestTIFFIsNeverZip(t *testing.T) {
	d := detect.New()

	for _, data := range [][]byte{tiffLE, tiffBE} {
		for _, res := range []detect.Result{detectStream(d, data), detectSeekable(d, data)} {
			require.Equal(t, mediatype.TIFF, res.Type)
			require.Zero(t, res.Entries)
			require.False(t, mediatype.DefaultRegistry.IsSpecializationOf(res.Type, mediatype.Zip))
		}
	}
}

func TestDetectIdempotent(t *testing.T) {
	d := detect.New()

	for _, fx := range fixtures(t) {
		require.Equal(t, detectStream(d, fx.data), detectStream(d, fx.data), fx.name)
		require.Equal(t, detectSeekable(d, fx.data), detectSeekable(d, fx.data), fx.name)
	}
}

func TestStreamInputIsRewound(t *testing.T) {
	d := detect.New()

	for _, fx := range fixtures(t) {
		in := detect.NewStreamInput(bytes.NewReader(fx.data))
		d.Detect(in)

		data, err := io.ReadAll(in)
		require.NoError(t, err)
		require.Equal(t, len(fx.data), len(data), fx.name)
		require.True(t, bytes.Equal(fx.data, data), fx.name)
	}
}

func TestStreamInputTwice(t *testing.T) {
	d := detect.New()

	in := detect.NewStreamInput(bytes.NewReader(odt(t)))
	require.Equal(t, mediatype.ODT, d.Detect(in).Type)
	require.Equal(t, mediatype.ODT, d.Detect(in).Type)
}

func TestMarkLimitBoundary(t *testing.T) {
	data := pages(t)

	small := detect.New(detect.WithConfig(detect.Config{MarkLimit: 64 * 1024}))

	res := detectStream(small, data)
	require.Equal(t, mediatype.Zip, res.Type)
	require.Equal(t, detect.StateGenericFallback, res.State)
	require.ErrorIs(t, res.Err, reader.ErrMarkLimitExceeded)
	require.LessOrEqual(t, res.BytesScanned, int64(64*1024))

	// the central directory is not bound to the mark limit
	res = detectSeekable(small, data)
	require.Equal(t, mediatype.Pages, res.Type)

	large := detect.New(detect.WithConfig(detect.Config{MarkLimit: 512 * 1024}))
	require.Equal(t, mediatype.Pages, detectStream(large, data).Type)
}

func TestMarkLimitNeverExceeded(t *testing.T) {
	const limit = 16 * 1024

	data := pages(t)
	src := &countingReader{r: bytes.NewReader(data)}

	d := detect.New(detect.WithConfig(detect.Config{MarkLimit: limit}))
	res := d.Detect(detect.NewStreamInput(src))

	require.Equal(t, mediatype.Zip, res.Type)
	require.LessOrEqual(t, src.n, limit)
}

type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

func TestCompressedMarkers(t *testing.T) {
	d := detect.New()

	for _, method := range []uint16{zip.Deflate, ziptest.Zstd, ziptest.XZ, ziptest.LZMA} {
		data := ziptest.Build(t,
			ziptest.Entry{Name: "mimetype", Data: []byte(mediatype.ODS), Method: method},
			ziptest.Deflated("content.xml", "<office:document-content/>"),
		)

		require.Equal(t, mediatype.ODS, detectStream(d, data).Type, format.MethodName(method))
		require.Equal(t, mediatype.ODS, detectSeekable(d, data).Type, format.MethodName(method))
	}
}

// bzip2 stream of "application/vnd.oasis.opendocument.text".
var bzip2ODT = []byte("\x42\x5a\x68\x39\x31\x41\x59\x26\x53\x59\xb2\xfd\x8f\xf0\x00\x00\x02\x11\x80\x00\x01\xae\x27\xcf\x40\x20\x00\x31\x43\x4d\x30\x00\x44\xd1\xa6\x26\x9b\x53\x22\x48\xe9\xcb\xc6\x50\x80\x50\x6e\x9e\x6a\xa2\x02\x73\xb6\xa4\x31\x6b\xaa\xb8\xf8\xbb\x92\x29\xc2\x84\x85\x97\xec\x7f\x80")

func TestBzip2Marker(t *testing.T) {
	d := detect.New()

	data := ziptest.Build(t,
		ziptest.Entry{Name: "mimetype", Data: []byte(mediatype.ODT), Method: ziptest.Bzip2, Raw: bzip2ODT},
		ziptest.Deflated("content.xml", "<office:document-content/>"),
	)

	for _, res := range []detect.Result{detectStream(d, data), detectSeekable(d, data)} {
		require.Equal(t, mediatype.ODT, res.Type)
		require.True(t, res.Definitive)
		require.Equal(t, 1, res.Entries)
	}
}

func TestUnsupportedCompressionIsSkipped(t *testing.T) {
	d := detect.New()

	data := ziptest.Build(t,
		ziptest.Entry{Name: "mimetype", Data: []byte(mediatype.ODT), Method: 99, Raw: []byte("opaque payload")},
		ziptest.Deflated("META-INF/MANIFEST.MF", "Manifest-Version: 1.0\n"),
	)

	for _, res := range []detect.Result{detectStream(d, data), detectSeekable(d, data)} {
		require.Equal(t, mediatype.JAR, res.Type)
		require.Equal(t, 2, res.Entries)
	}
}

func TestOversizedEntryIsSkipped(t *testing.T) {
	d := detect.New(detect.WithConfig(detect.Config{MaxCompressedSize: 16}))

	data := ziptest.Build(t,
		ziptest.Text("mimetype", string(mediatype.ODT)),
	)

	for _, res := range []detect.Result{detectStream(d, data), detectSeekable(d, data)} {
		require.Equal(t, mediatype.Zip, res.Type)
		require.Equal(t, detect.StateGenericFallback, res.State)
	}
}

func TestDataDescriptorEntries(t *testing.T) {
	d := detect.New()

	tests := []struct {
		name string
		data []byte
		want mediatype.Type
	}{
		{"stored mimetype", ziptest.Build(t,
			ziptest.Entry{Name: "mimetype", Data: []byte(mediatype.EPUB), Method: zip.Store, Descriptor: true},
		), mediatype.EPUB},
		{"deflated content types", ziptest.Build(t,
			ziptest.Entry{Name: "[Content_Types].xml", Data: []byte(xpsTypes), Method: zip.Deflate, Descriptor: true},
		), mediatype.XPS},
		{"skipped deflated entry", ziptest.Build(t,
			ziptest.Entry{Name: "notes.txt", Data: bytes.Repeat([]byte("lorem ipsum "), 4096), Method: zip.Deflate, Descriptor: true},
			ziptest.Entry{Name: "AndroidManifest.xml", Data: []byte("\x03\x00"), Method: zip.Deflate, Descriptor: true},
		), mediatype.APK},
		{"skipped stored entry", ziptest.Build(t,
			ziptest.Entry{Name: "blob.bin", Data: append([]byte("PK\x07\x08 embedded signature"), reader.GenerateRandomBuffer(8192)...), Method: zip.Store, Descriptor: true},
			ziptest.Text("doc.kml", "<kml/>"),
		), mediatype.KMZ},
	}

	for _, tc := range tests {
		require.Equal(t, tc.want, detectStream(d, tc.data).Type, tc.name)
		require.Equal(t, tc.want, detectSeekable(d, tc.data).Type, tc.name)
	}
}

func TestMaxEntries(t *testing.T) {
	entries := make([]ziptest.Entry, 0, 21)
	for i := range 20 {
		entries = append(entries, ziptest.Text(fmt.Sprintf("file-%02d.txt", i), "x"))
	}
	entries = append(entries, ziptest.Text("AndroidManifest.xml", "x"))
	data := ziptest.Build(t, entries...)

	d := detect.New(detect.WithConfig(detect.Config{MaxEntries: 5}))

	res := detectSeekable(d, data)
	require.Equal(t, mediatype.Zip, res.Type)
	require.Equal(t, 5, res.Entries)
	require.ErrorIs(t, res.Err, format.ErrEntryLimit)

	// the entry cap only applies to the central directory
	require.Equal(t, mediatype.APK, detectStream(d, data).Type)
	require.Equal(t, mediatype.APK, detectSeekable(detect.New(), data).Type)
}

func TestMalformedContainer(t *testing.T) {
	d := detect.New()

	data := ziptest.Build(t,
		ziptest.Filler("a.bin", 1000),
		ziptest.Text("mimetype", string(mediatype.ODT)),
	)
	truncated := data[:500]

	for _, res := range []detect.Result{detectStream(d, truncated), detectSeekable(d, truncated)} {
		require.Equal(t, mediatype.Unknown, res.Type)
		require.Equal(t, detect.StateUnknown, res.State)
		require.ErrorIs(t, res.Err, format.ErrInvalidZip)
	}

	// a corrupt record after a candidate keeps the candidate
	jar := ziptest.Build(t,
		ziptest.Deflated("META-INF/MANIFEST.MF", "Manifest-Version: 1.0\n"),
		ziptest.Deflated("Main.class", "\xca\xfe\xba\xbe"),
	)
	second := bytes.Index(jar[4:], []byte("PK\x03\x04")) + 4
	corrupt := bytes.Clone(jar)
	copy(corrupt[second:], "XXXX")

	res := detectStream(d, corrupt)
	require.Equal(t, mediatype.JAR, res.Type)
	require.ErrorIs(t, res.Err, format.ErrInvalidZip)
}

func TestIOFailure(t *testing.T) {
	errBoom := errors.New("boom")
	d := detect.New()

	data := pages(t)
	res := d.Detect(detect.NewStreamInput(io.MultiReader(bytes.NewReader(data[:4096]), iotest.ErrReader(errBoom))))
	require.Equal(t, mediatype.Unknown, res.Type)
	require.ErrorIs(t, res.Err, errBoom)

	res = d.Detect(detect.NewStreamInput(iotest.ErrReader(errBoom)))
	require.Equal(t, mediatype.Unknown, res.Type)

	res = d.Detect(detect.NewSeekableInput(failingReaderAt{data: data, failAfter: 1024, err: errBoom}, int64(len(data))))
	require.Equal(t, mediatype.Unknown, res.Type)
	require.ErrorIs(t, res.Err, errBoom)
}

type failingReaderAt struct {
	data      []byte
	failAfter int64
	err       error
}

func (r failingReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off+int64(len(p)) > r.failAfter {
		return 0, r.err
	}
	return copy(p, r.data[off:]), nil
}

func TestConcurrentDetect(t *testing.T) {
	d := detect.New()
	fxs := fixtures(t)

	var wg sync.WaitGroup
	results := make([][]mediatype.Type, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, fx := range fxs {
				results[i] = append(results[i], detectStream(d, fx.data).Type, detectSeekable(d, fx.data).Type)
			}
		}()
	}
	wg.Wait()

	var want []mediatype.Type
	for _, fx := range fxs {
		want = append(want, fx.want, fx.want)
	}
	for _, got := range results {
		require.Equal(t, want, got)
	}
}

func TestAttempt(t *testing.T) {
	d := detect.New()

	typ, err := d.Attempt(detect.BytesInput(odt(t)))
	require.NoError(t, err)
	require.Equal(t, mediatype.ODT, typ)

	_, err = d.Attempt(detect.BytesInput([]byte("plain text")))
	require.ErrorIs(t, err, detect.ErrNotApplicable)
}

func TestChain(t *testing.T) {
	text := []byte("plain text, not a container")

	var seen []byte
	fallback := detect.AttempterFunc(func(in detect.Input) (mediatype.Type, error) {
		s, ok := in.(*detect.StreamInput)
		if !ok {
			return mediatype.Unknown, detect.ErrNotApplicable
		}
		data, err := io.ReadAll(s)
		if err != nil {
			return mediatype.Unknown, err
		}
		seen = data
		return mediatype.OctetStream, nil
	})

	chain := detect.Chain{detect.New(), fallback}

	typ, err := chain.Attempt(detect.NewStreamInput(bytes.NewReader(text)))
	require.NoError(t, err)
	require.Equal(t, mediatype.OctetStream, typ)
	require.Equal(t, text, seen)

	typ, err = chain.Attempt(detect.NewStreamInput(bytes.NewReader(odt(t))))
	require.NoError(t, err)
	require.Equal(t, mediatype.ODT, typ)

	_, err = chain.Attempt(detect.BytesInput(text))
	require.ErrorIs(t, err, detect.ErrNotApplicable)

	_, err = detect.Chain{}.Attempt(detect.BytesInput(text))
	require.ErrorIs(t, err, detect.ErrNotApplicable)
}
