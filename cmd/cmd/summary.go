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
	"cmp"
	"fmt"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/ostafen/zipsniff/pkg/dfxml"
	"github.com/ostafen/zipsniff/pkg/mediatype"
	"github.com/spf13/cobra"
)

func DefineSummaryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary <report_file>",
		Short: "Summarize a detection report",
		Long: `The 'summary' command reads a DFXML report written by 'detect --output'
and prints the number of inputs classified as each media type.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunSummary,
	}
	cmd.Flags().String("is-a", "", "only count media types that are the given type or one of its specializations")
	return cmd
}

type typeCount struct {
	Type  string
	Count int
}

func RunSummary(cmd *cobra.Command, args []string) error {
	reportFile, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer reportFile.Close()

	isA, _ := cmd.Flags().GetString("is-a")
	base := mediatype.Parse(isA)

	counts := make(map[string]int)
	total := 0
	for obj, err := range dfxml.FileObjects(reportFile) {
		if err != nil {
			return fmt.Errorf("failed to read report %s: %w", args[0], err)
		}

		t := mediatype.Parse(obj.MediaType)
		if t == "unknown" {
			t = mediatype.Unknown
		}
		if base != "" && t != base && !mediatype.DefaultRegistry.IsSpecializationOf(t, base) {
			continue
		}
		counts[t.String()]++
		total++
	}

	rows := make([]typeCount, 0, len(counts))
	for t, n := range counts {
		rows = append(rows, typeCount{Type: t, Count: n})
	}
	slices.SortFunc(rows, func(a, b typeCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Type, b.Type)
	})

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tCOUNT")
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%d\n", row.Type, row.Count)
	}
	fmt.Fprintf(w, "TOTAL\t%d\n", total)
	return w.Flush()
}
