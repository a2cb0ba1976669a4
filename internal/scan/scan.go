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
package scan

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ostafen/zipsniff/internal/detect"
	"github.com/ostafen/zipsniff/internal/env"
	"github.com/ostafen/zipsniff/internal/fs"
	"github.com/ostafen/zipsniff/internal/mmap"
	"github.com/ostafen/zipsniff/pkg/dfxml"
	"github.com/ostafen/zipsniff/pkg/mediatype"
	"github.com/ostafen/zipsniff/pkg/pbar"
	fmtutil "github.com/ostafen/zipsniff/pkg/util/format"
	osutil "github.com/ostafen/zipsniff/pkg/util/os"
)

// StdinPath names the standard input among the inputs of a run.
const StdinPath = "-"

// Mode selects how inputs are handed to the detector.
type Mode string

const (
	// ModeAuto reads regular files through random access and everything else as a stream.
	ModeAuto   Mode = "auto"
	ModeStream Mode = "stream"
	ModeSeek   Mode = "seek"
)

var ErrInvalidMode = errors.New("invalid mode")

// ParseMode validates a mode name. The empty string selects ModeAuto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(s)); m {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModeStream, ModeSeek:
		return m, nil
	}
	return "", fmt.Errorf("%w %q: expected one of auto, stream, seek", ErrInvalidMode, s)
}

type Options struct {
	Mode   Mode
	Config detect.Config
	// Mmap maps seekable inputs in memory instead of reading them through the file.
	Mmap bool
	// ReportFile is the path of the DFXML report. No report is written when empty.
	ReportFile  string
	Progress    bool
	CommandLine string
	// IsA restricts the printed results to IsA and its specializations.
	IsA      mediatype.Type
	Registry mediatype.Registry

	Logger *slog.Logger
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func (opts Options) withDefaults() Options {
	if opts.Mode == "" {
		opts.Mode = ModeAuto
	}
	if opts.Registry == nil {
		opts.Registry = mediatype.DefaultRegistry
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	return opts
}

// Summary holds the totals of a run.
type Summary struct {
	Inputs       int
	Matched      int
	Unknown      int
	Failed       int
	BytesScanned int64
	Types        map[mediatype.Type]int
}

// Run classifies each input in paths, printing one line per input and
// appending a file object per input to the report.
// Inputs that cannot be opened are logged and counted as failed.
func Run(paths []string, opts Options) (Summary, error) {
	opts = opts.withDefaults()

	summary := Summary{Types: make(map[mediatype.Type]int)}

	logger := opts.Logger.With("session", GenSessionID())
	detector := detect.New(
		detect.WithConfig(opts.Config),
		detect.WithLogger(logger),
	)

	var report *dfxml.DFXMLWriter
	if opts.ReportFile != "" {
		outFile, err := osutil.CreateFile(opts.ReportFile)
		if err != nil {
			return summary, err
		}
		defer outFile.Close()

		cfg := detector.Config()

		report = dfxml.NewDFXMLWriter(outFile)
		err = report.WriteHeader(dfxml.DFXMLHeader{
			XmlOutput: dfxml.XmlOutputVersion,
			Metadata:  dfxml.DefaultMetadata,
			Creator: dfxml.Creator{
				Package:              env.AppName,
				Version:              env.Version,
				CommandLine:          opts.CommandLine,
				ExecutionEnvironment: dfxml.GetExecEnv(),
			},
			Source: dfxml.Source{
				Mode:              string(opts.Mode),
				MarkLimit:         cfg.MarkLimit,
				MaxEntries:        cfg.MaxEntries,
				MaxContentSize:    cfg.MaxContentSize,
				MaxCompressedSize: cfg.MaxCompressedSize,
				MaxDrainSize:      cfg.MaxDrainSize,
			},
		})
		if err != nil {
			return summary, err
		}
	}

	var progress *pbar.ProgressBar
	if opts.Progress {
		progress = pbar.New(opts.Stderr, len(paths))
	}

	logger.Info("starting classification", "inputs", len(paths), "mode", opts.Mode)

	start := time.Now()
	for _, path := range paths {
		res, size, err := classify(detector, path, opts)
		if err != nil {
			logger.Error("unable to classify input", "path", path, "err", err)
			summary.Failed++
			if progress != nil {
				progress.Add(0, false)
				progress.Render(false)
			}
			continue
		}

		summary.Inputs++
		summary.BytesScanned += res.BytesScanned
		summary.Types[res.Type]++
		if res.Type.IsUnknown() {
			summary.Unknown++
		} else {
			summary.Matched++
		}

		logger.Debug("input classified",
			"path", path,
			"type", res.Type,
			"state", res.State,
			"strategy", res.Strategy,
			"entries", res.Entries,
			"bytes", res.BytesScanned,
		)
		if res.Err != nil {
			logger.Warn("detection ended early", "path", path, "err", res.Err)
		}

		if report != nil {
			if err := report.WriteFileObject(fileObject(path, size, res)); err != nil {
				logger.Error("unable to write report entry", "path", path, "err", err)
			}
		}

		if progress != nil {
			progress.Add(res.BytesScanned, !res.Type.IsUnknown())
			progress.Render(false)
		}

		if opts.IsA == "" || res.Type == opts.IsA || opts.Registry.IsSpecializationOf(res.Type, opts.IsA) {
			fmt.Fprintf(opts.Stdout, "%s: %s\n", displayName(path), res.Type)
		}
	}

	if progress != nil {
		progress.Finish()
	}

	if report != nil {
		if err := report.Close(); err != nil {
			return summary, err
		}
	}

	logger.Info("classification completed",
		"inputs", summary.Inputs,
		"matched", summary.Matched,
		"unknown", summary.Unknown,
		"failed", summary.Failed,
		"scanned", fmtutil.FormatBytes(summary.BytesScanned),
		"duration", FormatDurationHMS(time.Since(start)),
	)
	return summary, nil
}

// classify opens path according to the run mode and detects its type.
// The returned size is zero when unknown.
func classify(detector *detect.Detector, path string, opts Options) (detect.Result, uint64, error) {
	if path == StdinPath {
		if opts.Mode == ModeSeek {
			return detect.Result{}, 0, fmt.Errorf("standard input is not seekable")
		}
		return detector.Detect(detect.NewStreamInput(opts.Stdin)), 0, nil
	}

	if opts.Mmap && opts.Mode != ModeStream {
		m, err := mmap.Open(path)
		if err == nil {
			defer m.Close()
			return detector.Detect(detect.NewSeekableInput(m, m.Size())), uint64(m.Size()), nil
		}
		if !errors.Is(err, mmap.ErrUnsupported) {
			return detect.Result{}, 0, err
		}
		opts.Logger.Debug("memory mapping unavailable, reading file", "path", path)
	}

	f, err := fs.Open(path)
	if err != nil {
		return detect.Result{}, 0, err
	}
	defer f.Close()

	finfo, err := f.Stat()
	if err != nil {
		return detect.Result{}, 0, err
	}
	if finfo.IsDir() {
		return detect.Result{}, 0, fmt.Errorf("%s is a directory", path)
	}

	size := finfo.Size()
	switch {
	case opts.Mode == ModeSeek,
		opts.Mode == ModeAuto && finfo.Mode().IsRegular():
		return detector.Detect(detect.NewSeekableInput(f, size)), uint64(size), nil
	}
	return detector.Detect(detect.NewStreamInput(f)), uint64(max(size, 0)), nil
}

func fileObject(path string, size uint64, res detect.Result) dfxml.FileObject {
	obj := dfxml.FileObject{
		Filename:  displayName(path),
		FileSize:  size,
		MediaType: res.Type.String(),
		Classification: dfxml.Classification{
			State:        res.State.String(),
			Strategy:     string(res.Strategy),
			Definitive:   res.Definitive,
			Entries:      res.Entries,
			BytesScanned: res.BytesScanned,
		},
	}
	if res.Err != nil {
		obj.Classification.Error = res.Err.Error()
	}
	return obj
}

func displayName(path string) string {
	if path == StdinPath {
		return "<stdin>"
	}
	return absPath(path)
}

func absPath(path string) string {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}

// GenSessionID creates a unique identifier for a classification session.
// The format is "YYYYMMDD_HHMMSS".
func GenSessionID() string {
	return time.Now().Format("20060102_150405")
}

// FormatDurationHMS formats a time.Duration into HH:MM:SS string.
// It handles durations that might be less than an hour or greater than 24 hours.
func FormatDurationHMS(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	totalSeconds := int64(d.Seconds())

	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
