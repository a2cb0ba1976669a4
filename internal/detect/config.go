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

package detect

import "github.com/ostafen/zipsniff/internal/format"

const (
	DefaultMarkLimit = 1024 * 1024
	// MinMarkLimit is the mark limit below which formats whose defining entry
	// follows large entries are likely to degrade to the generic container type.
	MinMarkLimit = 100 * 1024
)

// Config holds the budgets of a detection. Zero fields are replaced by defaults.
type Config struct {
	// MarkLimit is the number of bytes of a streaming input that may be buffered and rewound.
	MarkLimit int
	// MaxEntries caps the number of central directory records read on seekable inputs.
	MaxEntries int
	// MaxContentSize caps the number of decoded bytes inspected per entry.
	MaxContentSize int
	// MaxCompressedSize is the compressed size above which an entry is never decoded.
	MaxCompressedSize int64
	// MaxDrainSize caps the bytes inflated to skip an entry of unknown size.
	MaxDrainSize int64
}

func DefaultConfig() Config {
	return Config{
		MarkLimit:         DefaultMarkLimit,
		MaxEntries:        format.DefaultMaxEntries,
		MaxContentSize:    format.DefaultMaxContentSize,
		MaxCompressedSize: format.DefaultMaxCompressedSize,
		MaxDrainSize:      format.DefaultMaxDrainSize,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MarkLimit <= 0 {
		c.MarkLimit = def.MarkLimit
	}
	if c.MaxEntries <= 0 {
		c.MaxEntries = def.MaxEntries
	}
	if c.MaxContentSize <= 0 {
		c.MaxContentSize = def.MaxContentSize
	}
	if c.MaxCompressedSize <= 0 {
		c.MaxCompressedSize = def.MaxCompressedSize
	}
	if c.MaxDrainSize <= 0 {
		c.MaxDrainSize = def.MaxDrainSize
	}
	return c
}
