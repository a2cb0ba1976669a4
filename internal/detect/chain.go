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

import (
	"errors"

	"github.com/ostafen/zipsniff/pkg/mediatype"
)

// ErrNotApplicable is returned by an Attempter which cannot classify an input.
var ErrNotApplicable = errors.New("detector not applicable")

// Attempter is implemented by detectors that may be composed in a Chain.
type Attempter interface {
	Attempt(in Input) (mediatype.Type, error)
}

type AttempterFunc func(in Input) (mediatype.Type, error)

func (f AttempterFunc) Attempt(in Input) (mediatype.Type, error) {
	return f(in)
}

// Chain runs attempters in order and returns the first result which is not ErrNotApplicable.
// Attempters receiving a StreamInput must leave it rewound.
type Chain []Attempter

func (c Chain) Attempt(in Input) (mediatype.Type, error) {
	for _, a := range c {
		t, err := a.Attempt(in)
		if errors.Is(err, ErrNotApplicable) {
			continue
		}
		return t, err
	}
	return mediatype.Unknown, ErrNotApplicable
}
