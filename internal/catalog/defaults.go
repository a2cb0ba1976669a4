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

package catalog

import (
	"sync"

	"github.com/ostafen/zipsniff/pkg/mediatype"
)

const (
	contentTypesPart = "[Content_Types].xml"

	xpsFixedRepresentation  = "http://schemas.microsoft.com/xps/2005/06/fixedrepresentation"
	oxpsFixedRepresentation = "http://schemas.openxps.org/oxps/v1.0/fixedrepresentation"
	xpsDocumentSequence     = "application/vnd.ms-package.xps-fixeddocumentsequence+xml"
)

// mimetypeRules returns the rules of the formats storing their media type
// in a leading "mimetype" entry.
func mimetypeRules(types ...mediatype.Type) []Rule {
	rules := make([]Rule, 0, len(types))
	for _, t := range types {
		rules = append(rules, Rule{
			Desc:     "mimetype entry",
			Entry:    Exact("mimetype"),
			Content:  Equals(string(t)),
			Type:     t,
			Priority: PriorityDefinitive,
		})
	}
	return rules
}

// ooxmlMainParts maps the content type of the main part of an OPC package
// to the type of the package.
var ooxmlMainParts = []struct {
	contentType string
	t           mediatype.Type
}{
	{"application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml", mediatype.DOCX},
	{"application/vnd.ms-word.document.macroEnabled.main+xml", mediatype.DOCM},
	{"application/vnd.openxmlformats-officedocument.wordprocessingml.template.main+xml", mediatype.DOTX},
	{"application/vnd.ms-word.template.macroEnabledTemplate.main+xml", mediatype.DOTM},
	{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml", mediatype.XLSX},
	{"application/vnd.ms-excel.sheet.macroEnabled.main+xml", mediatype.XLSM},
	{"application/vnd.openxmlformats-officedocument.spreadsheetml.template.main+xml", mediatype.XLTX},
	{"application/vnd.ms-excel.template.macroEnabled.main+xml", mediatype.XLTM},
	{"application/vnd.ms-excel.sheet.binary.macroEnabled.main", mediatype.XLSB},
	{"application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml", mediatype.PPTX},
	{"application/vnd.ms-powerpoint.presentation.macroEnabled.main+xml", mediatype.PPTM},
	{"application/vnd.openxmlformats-officedocument.presentationml.slideshow.main+xml", mediatype.PPSX},
	{"application/vnd.ms-powerpoint.slideshow.macroEnabled.main+xml", mediatype.PPSM},
	{"application/vnd.openxmlformats-officedocument.presentationml.template.main+xml", mediatype.POTX},
	{"application/vnd.ms-powerpoint.template.macroEnabled.main+xml", mediatype.POTM},
	{"application/vnd.openxmlformats-officedocument.themeManager+xml", mediatype.THMX},
}

// DefaultRules returns the built-in rules, in declaration order.
func DefaultRules() []Rule {
	rules := mimetypeRules(
		mediatype.ODT, mediatype.OTT, mediatype.ODM,
		mediatype.ODS, mediatype.OTS,
		mediatype.ODP, mediatype.OTP,
		mediatype.ODG, mediatype.OTG,
		mediatype.ODF, mediatype.ODC, mediatype.ODB, mediatype.ODI,
		mediatype.EPUB, mediatype.AIR,
	)

	rules = append(rules,
		Rule{Desc: "XPS document sequence", Entry: Exact(contentTypesPart), Content: Contains(xpsDocumentSequence), Type: mediatype.XPS, Priority: PriorityDefinitive},
		Rule{Desc: "XPS relationships", Entry: Exact("_rels/.rels"), Content: Contains(xpsFixedRepresentation), Type: mediatype.XPS, Priority: PriorityDefinitive},
		Rule{Desc: "OpenXPS relationships", Entry: Exact("_rels/.rels"), Content: Contains(oxpsFixedRepresentation), Type: mediatype.XPS, Priority: PriorityDefinitive},
		Rule{Desc: "XPS fixed document sequence", Entry: Suffix(".fdseq"), Type: mediatype.XPS, Priority: PriorityDefinitive},

		Rule{Desc: "Keynote '09 index", Entry: Exact("index.apxl"), Type: mediatype.Keynote, Priority: PriorityDefinitive},
		Rule{Desc: "Pages '09 index", Entry: Exact("index.xml"), Content: Contains("<sl:document"), Type: mediatype.Pages, Priority: PriorityDefinitive},
		Rule{Desc: "Numbers '09 index", Entry: Exact("index.xml"), Content: Contains("<ls:document"), Type: mediatype.Numbers, Priority: PriorityDefinitive},
		Rule{Desc: "Keynote '09 index", Entry: Exact("index.xml"), Content: Contains("<key:presentation"), Type: mediatype.Keynote, Priority: PriorityDefinitive},

		Rule{Desc: "Android manifest", Entry: Exact("AndroidManifest.xml"), Type: mediatype.APK, Priority: PriorityDefinitive},
		Rule{Desc: "iOS application bundle", Entry: Dir("Payload/*.app"), Type: mediatype.IPA, Priority: 90},
	)

	for _, part := range ooxmlMainParts {
		rules = append(rules, Rule{
			Desc:     "OOXML main part",
			Entry:    Exact(contentTypesPart),
			Content:  Contains(part.contentType),
			Type:     part.t,
			Priority: 90,
		})
	}

	return append(rules,
		Rule{Desc: "Numbers '13 calculation engine", Entry: Exact("Index/CalculationEngine.iwa"), Type: mediatype.Numbers13, Priority: 90},
		Rule{Desc: "Keynote '13 slide", Entry: Prefix("Index/Slide"), Type: mediatype.Keynote13, Priority: 90},
		Rule{Desc: "Keynote '13 master slide", Entry: Prefix("Index/MasterSlide"), Type: mediatype.Keynote13, Priority: 90},
		Rule{Desc: "iWork '13 document", Entry: Exact("Index/Document.iwa"), Type: mediatype.IWorkUnknown13, Priority: 40},

		Rule{Desc: "Word document part", Entry: Exact("word/document.xml"), Type: mediatype.DOCX, Priority: 80},
		Rule{Desc: "Excel workbook part", Entry: Exact("xl/workbook.xml"), Type: mediatype.XLSX, Priority: 80},
		Rule{Desc: "PowerPoint presentation part", Entry: Exact("ppt/presentation.xml"), Type: mediatype.PPTX, Priority: 80},

		Rule{Desc: "KMZ document", Entry: Exact("doc.kml"), Type: mediatype.KMZ, Priority: 70},

		Rule{Desc: "Java EE application descriptor", Entry: Exact("META-INF/application.xml"), Type: mediatype.EAR, Priority: 60},
		Rule{Desc: "Dalvik bytecode", Entry: Exact("classes.dex"), Type: mediatype.APK, Priority: 60},
		Rule{Desc: "Java web application", Entry: Prefix("WEB-INF/"), Type: mediatype.WAR, Priority: 50},
		Rule{Desc: "Java manifest", Entry: Exact("META-INF/MANIFEST.MF"), Type: mediatype.JAR, Priority: 30},

		Rule{Desc: "OPC content types", Entry: Exact(contentTypesPart), Type: mediatype.OOXML, Priority: 20},
	)
}

var defaultCatalog = sync.OnceValue(func() *Catalog {
	return New(DefaultRules()...)
})

// Default returns the catalog built from DefaultRules. It is shared and read-only.
func Default() *Catalog {
	return defaultCatalog()
}
