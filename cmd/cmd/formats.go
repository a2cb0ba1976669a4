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
	"encoding/hex"
	"fmt"
	"text/tabwriter"

	"github.com/ostafen/zipsniff/internal/catalog"
	"github.com/ostafen/zipsniff/internal/format"
	"github.com/spf13/cobra"
)

func DefineFormatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "formats",
		Short: "List all supported formats",
		Long: `The 'formats' command displays the byte signatures checked before a container is opened,
followed by the rules used to classify ZIP containers from their entries, in evaluation order.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         RunFormats,
	}
	return cmd
}

func RunFormats(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "TYPE\tDESC\tSIGNATURE")
	for _, sig := range format.DefaultSignatureTable().Signatures() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", sig.Type, sig.Desc, hex.EncodeToString(sig.Magic))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "TYPE\tDESC\tENTRY\tCONTENT\tPRIORITY")
	for _, r := range catalog.Default().Rules() {
		content := r.Content.String()
		if content == "" {
			content = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", r.Type, r.Desc, r.Entry, content, r.Priority)
	}
	return w.Flush()
}
