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
	"io"
	"iter"
	"log/slog"

	"github.com/ostafen/zipsniff/internal/catalog"
	"github.com/ostafen/zipsniff/internal/format"
	"github.com/ostafen/zipsniff/pkg/mediatype"
	"github.com/ostafen/zipsniff/pkg/reader"
)

// State is a step of a detection.
type State uint8

const (
	StateStart State = iota
	StatePrefilterChecked
	StateContainerConfirmed
	StateScanning
	// StateDefinitiveMatch means that a byte signature or a catalog rule decided the type.
	StateDefinitiveMatch
	// StateGenericFallback means that the input is a ZIP container of no known kind.
	StateGenericFallback
	StateUnknown
)

var stateNames = [...]string{
	StateStart:              "start",
	StatePrefilterChecked:   "prefilter-checked",
	StateContainerConfirmed: "container-confirmed",
	StateScanning:           "scanning",
	StateDefinitiveMatch:    "definitive-match",
	StateGenericFallback:    "generic-fallback",
	StateUnknown:            "unknown",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "invalid"
}

// Terminal reports whether s ends a detection.
func (s State) Terminal() bool {
	return s >= StateDefinitiveMatch
}

// Strategy tells how the type was determined.
type Strategy string

const (
	StrategyNone      Strategy = "none"
	StrategySignature Strategy = "signature"
	StrategyStream    Strategy = "stream"
	StrategyDirectory Strategy = "directory"
)

// Result is the outcome of a detection.
type Result struct {
	Type     mediatype.Type
	State    State
	Strategy Strategy
	// Entries is the number of entries inspected.
	Entries      int
	BytesScanned int64
	// Definitive is true when the scan stopped at a definitive catalog rule
	// or the type was given by a byte signature.
	Definitive bool
	// Err is the condition that ended the scan early, if any. It is informational:
	// Type is always set according to State.
	Err error
}

// Detector classifies ZIP containers. It is immutable and safe for concurrent use.
type Detector struct {
	cfg        Config
	signatures *format.SignatureTable
	catalog    *catalog.Catalog
	logger     *slog.Logger
}

type Option func(*Detector)

func WithConfig(cfg Config) Option {
	return func(d *Detector) {
		d.cfg = cfg.withDefaults()
	}
}

func WithCatalog(c *catalog.Catalog) Option {
	return func(d *Detector) {
		d.catalog = c
	}
}

func WithSignatures(t *format.SignatureTable) Option {
	return func(d *Detector) {
		d.signatures = t
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *Detector) {
		d.logger = logger
	}
}

func New(opts ...Option) *Detector {
	d := &Detector{
		cfg:        DefaultConfig(),
		signatures: format.DefaultSignatureTable(),
		catalog:    catalog.Default(),
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Detector) Config() Config {
	return d.cfg
}

// detectionContext holds the state of a single detection.
type detectionContext struct {
	logger *slog.Logger

	state      State
	strategy   Strategy
	entries    int
	best       catalog.Match
	found      bool
	definitive bool
}

func (c *detectionContext) transition(s State) {
	c.logger.Debug("detection state", "from", c.state, "to", s)
	c.state = s
}

// Detect classifies the input. It never fails: I/O errors and malformed
// containers result in mediatype.Unknown. A StreamInput is rewound before
// Detect returns.
func (d *Detector) Detect(in Input) Result {
	switch in := in.(type) {
	case *StreamInput:
		return d.detectStream(in)
	case *SeekableInput:
		return d.detectSeekable(in)
	}
	return Result{Type: mediatype.Unknown, State: StateUnknown, Strategy: StrategyNone, Err: ErrNotApplicable}
}

func (d *Detector) newContext(in Input) *detectionContext {
	return &detectionContext{
		logger:   d.logger.With("input", in.Capability().String()),
		state:    StateStart,
		strategy: StrategyNone,
	}
}

func (d *Detector) detectStream(in *StreamInput) (res Result) {
	r := in.Reader()
	start := r.Offset()

	r.Mark(d.cfg.MarkLimit)
	defer func() {
		res.BytesScanned = r.Offset() - start
		if err := r.Reset(); err != nil {
			d.logger.Warn("cannot rewind input", "err", err)
		}
	}()

	ctx := d.newContext(in)

	prefix, err := r.Peek(format.SignatureLen)
	if err != nil && err != io.EOF && !errors.Is(err, reader.ErrMarkLimitExceeded) {
		return d.fail(ctx, err)
	}

	if res, done := d.checkPrefix(ctx, prefix); done {
		return res
	}

	ctx.strategy = StrategyStream
	ctx.transition(StateScanning)

	return d.finish(ctx, d.scan(ctx, format.ScanEntries(r, d.entryOptions())))
}

func (d *Detector) detectSeekable(in *SeekableInput) Result {
	r := &countingReaderAt{r: in.ReaderAt()}
	size := in.Size()

	res := d.detectReaderAt(d.newContext(in), r, size)
	res.BytesScanned = r.n
	return res
}

func (d *Detector) detectReaderAt(ctx *detectionContext, r io.ReaderAt, size int64) Result {
	prefix := make([]byte, min(int64(format.SignatureLen), max(size, 0)))
	if n, err := r.ReadAt(prefix, 0); err != nil && !(err == io.EOF && n == len(prefix)) {
		return d.fail(ctx, err)
	}

	if res, done := d.checkPrefix(ctx, prefix); done {
		return res
	}

	ctx.strategy = StrategyDirectory
	ctx.transition(StateScanning)

	err := d.scan(ctx, format.ResolveCentralDirectory(r, size, format.DirectoryOptions{
		EntryOptions: d.entryOptions(),
		MaxEntries:   d.cfg.MaxEntries,
	}))

	noDirectory := errors.Is(err, format.ErrNoDirectory) || (errors.Is(err, format.ErrInvalidZip) && ctx.entries == 0)
	if !noDirectory {
		return d.finish(ctx, err)
	}

	// without a usable central directory, local headers are read sequentially
	// as for a streaming input.
	ctx.logger.Debug("central directory unavailable, scanning local headers", "err", err)

	mr := reader.NewMarkReader(io.NewSectionReader(r, 0, size))
	mr.Mark(d.cfg.MarkLimit)

	ctx.strategy = StrategyStream
	return d.finish(ctx, d.scan(ctx, format.ScanEntries(mr, d.entryOptions())))
}

// checkPrefix runs the byte signature table and checks the container magic.
// It reports whether the detection is over.
func (d *Detector) checkPrefix(ctx *detectionContext, prefix []byte) (Result, bool) {
	sig, ok := d.signatures.Match(prefix)
	ctx.transition(StatePrefilterChecked)
	if ok {
		ctx.logger.Debug("byte signature matched", "desc", sig.Desc, "type", sig.Type)

		ctx.strategy = StrategySignature
		ctx.transition(StateDefinitiveMatch)
		return Result{
			Type:       sig.Type,
			State:      ctx.state,
			Strategy:   ctx.strategy,
			Definitive: true,
		}, true
	}

	isZip, empty := format.IsZipMagic(prefix)
	if !isZip {
		ctx.transition(StateUnknown)
		return d.result(ctx, nil), true
	}

	ctx.transition(StateContainerConfirmed)
	if empty {
		ctx.transition(StateGenericFallback)
		return d.result(ctx, nil), true
	}
	return Result{}, false
}

func (d *Detector) entryOptions() format.EntryOptions {
	return format.EntryOptions{
		WantContent:       d.catalog.NeedsContent,
		MaxContentSize:    d.cfg.MaxContentSize,
		MaxCompressedSize: d.cfg.MaxCompressedSize,
		MaxDrainSize:      d.cfg.MaxDrainSize,
	}
}

// scan classifies entries until a definitive match is found. It returns the
// error that ended the sequence, if any.
func (d *Detector) scan(ctx *detectionContext, entries iter.Seq2[*format.ZipEntry, error]) error {
	for e, err := range entries {
		if err != nil {
			return err
		}
		ctx.entries++

		if e.ContentErr != nil {
			ctx.logger.Debug("entry content skipped", "name", e.Name, "method", format.MethodName(e.Method), "err", e.ContentErr)
		}

		m, ok := d.catalog.Classify(e.Name, e.Content)
		if !ok {
			continue
		}

		if !ctx.found || m.Outranks(ctx.best) {
			ctx.logger.Debug("candidate", "name", e.Name, "rule", m.Desc, "type", m.Type, "priority", m.Priority)

			ctx.best = m
			ctx.found = true
		}

		if ctx.best.Definitive() {
			ctx.definitive = true
			return nil
		}
	}
	return nil
}

// finish moves the detection to a terminal state, given the condition that ended the scan.
func (d *Detector) finish(ctx *detectionContext, err error) Result {
	switch {
	case err == nil,
		errors.Is(err, reader.ErrMarkLimitExceeded),
		errors.Is(err, format.ErrEntryLimit),
		errors.Is(err, format.ErrEntryBoundary):
		// exhausted
	case errors.Is(err, format.ErrInvalidZip):
		if !ctx.found {
			ctx.logger.Warn("malformed container", "err", err)
			ctx.transition(StateUnknown)
			return d.result(ctx, err)
		}
		ctx.logger.Debug("malformed container, keeping candidate", "err", err)
	default:
		return d.fail(ctx, err)
	}

	if ctx.found {
		ctx.transition(StateDefinitiveMatch)
	} else {
		ctx.transition(StateGenericFallback)
	}
	return d.result(ctx, err)
}

func (d *Detector) fail(ctx *detectionContext, err error) Result {
	ctx.logger.Warn("detection failed", "err", err)
	ctx.transition(StateUnknown)
	return d.result(ctx, err)
}

func (d *Detector) result(ctx *detectionContext, err error) Result {
	res := Result{
		State:      ctx.state,
		Strategy:   ctx.strategy,
		Entries:    ctx.entries,
		Definitive: ctx.definitive,
		Err:        err,
	}

	switch ctx.state {
	case StateDefinitiveMatch:
		res.Type = ctx.best.Type
	case StateGenericFallback:
		res.Type = mediatype.Zip
	default:
		res.Type = mediatype.Unknown
	}
	return res
}

// Attempt implements Attempter. Inputs that cannot be classified yield ErrNotApplicable.
func (d *Detector) Attempt(in Input) (mediatype.Type, error) {
	res := d.Detect(in)
	if res.State == StateUnknown {
		return mediatype.Unknown, ErrNotApplicable
	}
	return res.Type, nil
}
