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
package cmd

import (
	"fmt"
	"math"
	"strings"

	"github.com/ostafen/zipsniff/internal/detect"
	"github.com/ostafen/zipsniff/internal/logger"
	"github.com/ostafen/zipsniff/internal/scan"
	"github.com/ostafen/zipsniff/pkg/mediatype"
	"github.com/ostafen/zipsniff/pkg/util/format"
	"github.com/spf13/cobra"
)

func DefineDetectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect <path|->...",
		Short: "Detect the media type of ZIP based files",
		Long: `The 'detect' command classifies each input as a specific ZIP based format (OpenDocument, OOXML, EPUB, JAR, APK, ...),
as a generic ZIP archive, or as one of the formats recognised from their leading bytes.
Use "-" to read the standard input.`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE:         RunDetect,
	}

	cmd.Flags().String("mode", string(scan.ModeAuto), "how inputs are read: auto, stream or seek")
	cmd.Flags().String("mark-limit", "1MB", fmt.Sprintf(
		"max number of bytes buffered from a streaming input (below %s, formats whose index follows large entries are reported as %s)",
		format.FormatBytes(detect.MinMarkLimit), mediatype.Zip))
	cmd.Flags().Int("max-entries", 10000, "max number of central directory entries to inspect")
	cmd.Flags().String("max-content", "64KB", "max number of decoded bytes inspected per entry")
	cmd.Flags().String("max-compressed", "1MB", "compressed size above which entries are not decoded")
	cmd.Flags().String("max-drain", "16MB", "max number of bytes inflated to skip an entry of unknown size")
	cmd.Flags().Bool("mmap", false, "memory map seekable inputs")
	cmd.Flags().StringP("output", "o", "", "the path of the DFXML report file")
	cmd.Flags().Bool("progress", false, "show a progress bar")
	cmd.Flags().String("log-file", "", `the path of the log file ("-" disables logging)`)
	cmd.Flags().String("is-a", "", "only print inputs of the given media type or one of its specializations")

	return cmd
}

func RunDetect(cmd *cobra.Command, args []string) error {
	opts, err := parseDetectOptions(cmd)
	if err != nil {
		return err
	}

	logLevel, _ := cmd.Flags().GetString("log-level")
	logFile, _ := cmd.Flags().GetString("log-file")

	log, closer, err := logger.New(logFile, logger.ParseLevel(logLevel))
	if err != nil {
		return err
	}
	defer closer.Close()

	opts.Logger = log
	opts.Stdin = cmd.InOrStdin()
	opts.Stdout = cmd.OutOrStdout()
	opts.Stderr = cmd.ErrOrStderr()
	opts.CommandLine = strings.Join(append([]string{cmd.CommandPath()}, args...), " ")

	summary, err := scan.Run(args, opts)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d inputs could not be read", summary.Failed, len(args))
	}
	return nil
}

func parseDetectOptions(cmd *cobra.Command) (scan.Options, error) {
	modeName, _ := cmd.Flags().GetString("mode")
	mode, err := scan.ParseMode(modeName)
	if err != nil {
		return scan.Options{}, err
	}

	markLimit, err := getBytes(cmd, "mark-limit")
	if err != nil {
		return scan.Options{}, err
	}

	maxContent, err := getBytes(cmd, "max-content")
	if err != nil {
		return scan.Options{}, err
	}
	maxCompressed, err := getBytes(cmd, "max-compressed")
	if err != nil {
		return scan.Options{}, err
	}
	maxDrain, err := getBytes(cmd, "max-drain")
	if err != nil {
		return scan.Options{}, err
	}

	maxEntries, _ := cmd.Flags().GetInt("max-entries")
	useMmap, _ := cmd.Flags().GetBool("mmap")
	outputFile, _ := cmd.Flags().GetString("output")
	progress, _ := cmd.Flags().GetBool("progress")
	isA, _ := cmd.Flags().GetString("is-a")

	return scan.Options{
		Mode: mode,
		Config: detect.Config{
			MarkLimit:         int(markLimit),
			MaxEntries:        maxEntries,
			MaxContentSize:    int(maxContent),
			MaxCompressedSize: int64(maxCompressed),
			MaxDrainSize:      maxDrain,
		},
		Mmap:       useMmap,
		ReportFile: outputFile,
		Progress:   progress,
		IsA:        mediatype.Parse(isA),
		Registry:   mediatype.DefaultRegistry,
	}, nil
}

func getBytes(cmd *cobra.Command, name string) (int64, error) {
	s, _ := cmd.Flags().GetString(name)

	v, err := format.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid --%s: %w", name, err)
	}
	if v > math.MaxInt32 {
		return 0, fmt.Errorf("--%s is too large: %s", name, s)
	}
	return int64(v), nil
}
