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
package pbar

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/ostafen/zipsniff/pkg/util/format"
)

const MinRefreshRate = time.Millisecond * 500

const barLength = 20

// ProgressBar renders the progress of a classification run on a single terminal line.
type ProgressBar struct {
	mu sync.Mutex
	w  io.Writer

	TotalInputs    int
	ProcessedInput int
	Matched        int
	ProcessedBytes int64

	StartTime          time.Time
	LastUpdateTime     time.Time
	LastProcessedBytes int64
}

// New initializes a ProgressBar over totalInputs inputs, writing to w.
func New(w io.Writer, totalInputs int) *ProgressBar {
	return &ProgressBar{
		w:           w,
		TotalInputs: totalInputs,
		StartTime:   time.Now(),
	}
}

// Add records a classified input of n bytes.
func (p *ProgressBar) Add(n int64, matched bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ProcessedInput++
	p.ProcessedBytes += n
	if matched {
		p.Matched++
	}
}

// Render prints the progress bar line, at most once every MinRefreshRate unless force is set.
func (p *ProgressBar) Render(force bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	if !force && now.Sub(p.LastUpdateTime) < MinRefreshRate {
		return
	}

	var percentage float64
	if p.TotalInputs > 0 {
		percentage = float64(p.ProcessedInput) / float64(p.TotalInputs) * 100
	}

	filledLen := min(int(float64(barLength)*percentage/100), barLength)
	var bar string
	if filledLen == barLength {
		bar = strings.Repeat("=", barLength)
	} else {
		bar = strings.Repeat("=", filledLen) + ">" + strings.Repeat(" ", barLength-filledLen-1)
	}

	var speedMBps float64
	if !p.LastUpdateTime.IsZero() {
		if elapsed := now.Sub(p.LastUpdateTime).Seconds(); elapsed > 0 {
			speedMBps = float64(p.ProcessedBytes-p.LastProcessedBytes) / elapsed / (1024 * 1024)
		}
	}

	p.LastUpdateTime = now
	p.LastProcessedBytes = p.ProcessedBytes

	// trailing spaces clear leftovers of a longer previous line
	fmt.Fprintf(p.w, "\r[INFO] Progress: [%s] %3.0f%% (%d/%d) | Matched: %d | %s scanned @ %.2fMB/s    ",
		bar,
		percentage,
		p.ProcessedInput,
		p.TotalInputs,
		p.Matched,
		format.FormatBytes(p.ProcessedBytes),
		speedMBps,
	)
}

// Finish renders the final state and moves to the next line.
func (p *ProgressBar) Finish() {
	p.Render(true)
	fmt.Fprintln(p.w)
}
