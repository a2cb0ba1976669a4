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
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/ostafen/zipsniff/pkg/mediatype"
)

type NameKind uint8

const (
	NameExact NameKind = iota
	NamePrefix
	NameSuffix
	// NameDir matches entries stored below a directory whose path matches a
	// path.Match pattern, such as "Payload/*.app".
	NameDir
)

// NameMatcher selects entries by name. Names are compared byte by byte.
type NameMatcher struct {
	Kind    NameKind
	Pattern string
}

func Exact(name string) NameMatcher    { return NameMatcher{Kind: NameExact, Pattern: name} }
func Prefix(prefix string) NameMatcher { return NameMatcher{Kind: NamePrefix, Pattern: prefix} }
func Suffix(suffix string) NameMatcher { return NameMatcher{Kind: NameSuffix, Pattern: suffix} }
func Dir(pattern string) NameMatcher   { return NameMatcher{Kind: NameDir, Pattern: pattern} }

func (m NameMatcher) Match(name string) bool {
	switch m.Kind {
	case NameExact:
		return name == m.Pattern
	case NamePrefix:
		return strings.HasPrefix(name, m.Pattern)
	case NameSuffix:
		return strings.HasSuffix(name, m.Pattern)
	case NameDir:
		return matchDir(m.Pattern, name)
	}
	return false
}

func matchDir(pattern, name string) bool {
	depth := strings.Count(pattern, "/") + 1

	segments := strings.SplitN(name, "/", depth+1)
	if len(segments) <= depth {
		return false
	}

	ok, err := path.Match(pattern, strings.Join(segments[:depth], "/"))
	return err == nil && ok
}

func (m NameMatcher) String() string {
	switch m.Kind {
	case NameExact:
		return m.Pattern
	case NamePrefix:
		return m.Pattern + "*"
	case NameSuffix:
		return "*" + m.Pattern
	case NameDir:
		return m.Pattern + "/"
	}
	return fmt.Sprintf("kind(%d):%s", m.Kind, m.Pattern)
}

type ContentKind uint8

const (
	ContentAny ContentKind = iota
	ContentEquals
	ContentContains
)

// ContentMatcher inspects the decoded fragment of an entry.
// The zero value accepts any content.
type ContentMatcher struct {
	Kind    ContentKind
	Pattern []byte
}

func Equals(s string) ContentMatcher { return ContentMatcher{Kind: ContentEquals, Pattern: []byte(s)} }
func Contains(s string) ContentMatcher {
	return ContentMatcher{Kind: ContentContains, Pattern: []byte(s)}
}

// NeedsContent reports whether the matcher inspects entry content.
func (m ContentMatcher) NeedsContent() bool {
	return m.Kind != ContentAny
}

func (m ContentMatcher) Match(content []byte) bool {
	switch m.Kind {
	case ContentAny:
		return true
	case ContentEquals:
		return bytes.Equal(content, m.Pattern)
	case ContentContains:
		return bytes.Contains(content, m.Pattern)
	}
	return false
}

func (m ContentMatcher) String() string {
	switch m.Kind {
	case ContentEquals:
		return fmt.Sprintf("== %q", m.Pattern)
	case ContentContains:
		return fmt.Sprintf("contains %q", m.Pattern)
	}
	return ""
}

// Rule maps an entry of a ZIP container to the media type of the whole container.
type Rule struct {
	Desc     string
	Entry    NameMatcher
	Content  ContentMatcher
	Type     mediatype.Type
	Priority int
}

// Match reports whether the rule applies to the entry with the given name and content.
// Rules with a content matcher never match entries whose content is not available.
func (r *Rule) Match(name string, content []byte) bool {
	if !r.Entry.Match(name) {
		return false
	}
	if r.Content.NeedsContent() && content == nil {
		return false
	}
	return r.Content.Match(content)
}
