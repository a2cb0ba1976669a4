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

package mediatype

import "strings"

// Type identifies a classification result, e.g. "application/vnd.oasis.opendocument.text".
type Type string

// Unknown is returned when the input cannot be classified.
const Unknown Type = ""

const (
	OctetStream Type = "application/octet-stream"
	Zip         Type = "application/zip"

	// Non-container formats recognised from their leading bytes.
	TIFF     Type = "image/tiff"
	PNG      Type = "image/png"
	JPEG     Type = "image/jpeg"
	GIF      Type = "image/gif"
	PDF      Type = "application/pdf"
	OLE2     Type = "application/x-tika-msoffice"
	Gzip     Type = "application/gzip"
	Bzip2    Type = "application/x-bzip2"
	XZ       Type = "application/x-xz"
	Zstd     Type = "application/zstd"
	SevenZip Type = "application/x-7z-compressed"
	RAR      Type = "application/x-rar-compressed"
	ELF      Type = "application/x-executable"
	Ogg      Type = "audio/ogg"
	FLAC     Type = "audio/x-flac"
	MIDI     Type = "audio/midi"
	WOFF     Type = "font/woff"
	WOFF2    Type = "font/woff2"
	Matroska Type = "video/x-matroska"

	// OpenDocument
	ODT Type = "application/vnd.oasis.opendocument.text"
	OTT Type = "application/vnd.oasis.opendocument.text-template"
	ODM Type = "application/vnd.oasis.opendocument.text-master"
	ODS Type = "application/vnd.oasis.opendocument.spreadsheet"
	OTS Type = "application/vnd.oasis.opendocument.spreadsheet-template"
	ODP Type = "application/vnd.oasis.opendocument.presentation"
	OTP Type = "application/vnd.oasis.opendocument.presentation-template"
	ODG Type = "application/vnd.oasis.opendocument.graphics"
	OTG Type = "application/vnd.oasis.opendocument.graphics-template"
	ODF Type = "application/vnd.oasis.opendocument.formula"
	ODC Type = "application/vnd.oasis.opendocument.chart"
	ODB Type = "application/vnd.oasis.opendocument.base"
	ODI Type = "application/vnd.oasis.opendocument.image"

	EPUB Type = "application/epub+zip"
	AIR  Type = "application/vnd.adobe.air-application-installer-package+zip"

	// Office Open XML
	OOXML Type = "application/x-tika-ooxml"
	DOCX  Type = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	DOCM  Type = "application/vnd.ms-word.document.macroenabled.12"
	DOTX  Type = "application/vnd.openxmlformats-officedocument.wordprocessingml.template"
	DOTM  Type = "application/vnd.ms-word.template.macroenabled.12"
	XLSX  Type = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	XLSM  Type = "application/vnd.ms-excel.sheet.macroenabled.12"
	XLTX  Type = "application/vnd.openxmlformats-officedocument.spreadsheetml.template"
	XLTM  Type = "application/vnd.ms-excel.template.macroenabled.12"
	XLSB  Type = "application/vnd.ms-excel.sheet.binary.macroenabled.12"
	PPTX  Type = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	PPTM  Type = "application/vnd.ms-powerpoint.presentation.macroenabled.12"
	PPSX  Type = "application/vnd.openxmlformats-officedocument.presentationml.slideshow"
	PPSM  Type = "application/vnd.ms-powerpoint.slideshow.macroenabled.12"
	POTX  Type = "application/vnd.openxmlformats-officedocument.presentationml.template"
	POTM  Type = "application/vnd.ms-powerpoint.template.macroenabled.12"
	THMX  Type = "application/vnd.openxmlformats-officedocument.theme"
	XPS   Type = "application/vnd.ms-xpsdocument"

	// Apple iWork
	Pages          Type = "application/vnd.apple.pages"
	Numbers        Type = "application/vnd.apple.numbers"
	Keynote        Type = "application/vnd.apple.keynote"
	Numbers13      Type = "application/vnd.apple.numbers.13"
	Keynote13      Type = "application/vnd.apple.keynote.13"
	IWorkUnknown13 Type = "application/vnd.apple.unknown.13"

	// Java and mobile packages
	JAR Type = "application/java-archive"
	WAR Type = "application/x-tika-java-web-archive"
	EAR Type = "application/x-tika-java-enterprise-archive"
	APK Type = "application/vnd.android.package-archive"
	IPA Type = "application/x-itunes-ipa"

	KMZ Type = "application/vnd.google-earth.kmz"
)

// Parse normalises s into a Type. Parameters are dropped and the result
// is lowercased, so "Application/ZIP; charset=x" becomes "application/zip".
func Parse(s string) Type {
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	return Type(strings.ToLower(strings.TrimSpace(s)))
}

func (t Type) String() string {
	if t == Unknown {
		return "unknown"
	}
	return string(t)
}

func (t Type) IsUnknown() bool {
	return t == Unknown
}
