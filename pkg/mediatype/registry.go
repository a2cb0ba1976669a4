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

// Registry answers whether one media type is a specialization of another.
// The detection engine only consumes this relation.
type Registry interface {
	IsSpecializationOf(t, base Type) bool
}

// StaticRegistry is a Registry backed by a fixed child -> parent table.
type StaticRegistry struct {
	parents map[Type]Type
}

// NewStaticRegistry builds a registry from a child -> parent map.
// Every type is considered a specialization of application/octet-stream.
func NewStaticRegistry(parents map[Type]Type) *StaticRegistry {
	m := make(map[Type]Type, len(parents))
	for k, v := range parents {
		m[k] = v
	}
	return &StaticRegistry{parents: m}
}

// Supertype returns the direct parent of t, if any.
func (r *StaticRegistry) Supertype(t Type) (Type, bool) {
	p, ok := r.parents[t]
	return p, ok
}

// IsSpecializationOf reports whether t is a strict descendant of base.
func (r *StaticRegistry) IsSpecializationOf(t, base Type) bool {
	if t == Unknown || t == base {
		return false
	}
	if base == OctetStream {
		return true
	}

	// a malformed table could contain a cycle
	for range len(r.parents) + 1 {
		p, ok := r.parents[t]
		if !ok {
			return false
		}
		if p == base {
			return true
		}
		t = p
	}
	return false
}

// DefaultRegistry relates the container types known to this module.
var DefaultRegistry = NewStaticRegistry(map[Type]Type{
	ODT: Zip, OTT: Zip, ODM: Zip, ODS: Zip, OTS: Zip, ODP: Zip, OTP: Zip,
	ODG: Zip, OTG: Zip, ODF: Zip, ODC: Zip, ODB: Zip, ODI: Zip,
	EPUB: Zip,
	AIR:  Zip,

	OOXML: Zip,
	DOCX:  OOXML, DOCM: OOXML, DOTX: OOXML, DOTM: OOXML,
	XLSX: OOXML, XLSM: OOXML, XLTX: OOXML, XLTM: OOXML, XLSB: OOXML,
	PPTX: OOXML, PPTM: OOXML, PPSX: OOXML, PPSM: OOXML, POTX: OOXML, POTM: OOXML,
	THMX: OOXML,
	XPS:  Zip,

	Pages: Zip, Numbers: Zip, Keynote: Zip,
	IWorkUnknown13: Zip, Numbers13: IWorkUnknown13, Keynote13: IWorkUnknown13,

	JAR: Zip,
	WAR: JAR,
	EAR: JAR,
	APK: JAR,
	IPA: Zip,
	KMZ: Zip,
})
