package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"xhuma/internal/ccda"
	"xhuma/internal/fhir"
)

// convertCmd runs the converter offline: a structured record bundle in,
// the C-CDA document out on stdout and skipped sections on stderr.
func convertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert [bundle.json]",
		Short: "Convert a GP Connect structured record bundle to C-CDA",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return convert(in, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

func convert(in io.Reader, out, diag io.Writer) error {
	raw, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read bundle: %w", err)
	}
	bundle, err := fhir.ParseBundle(raw)
	if err != nil {
		return err
	}
	doc, err := ccda.Convert(bundle)
	if err != nil {
		return err
	}
	for _, w := range doc.Warnings {
		fmt.Fprintf(diag, "warning: section %q skipped: %s\n", w.Section, w.Reason)
	}
	_, err = io.WriteString(out, doc.XML)
	return err
}
