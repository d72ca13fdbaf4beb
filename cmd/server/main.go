package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var configFile string
	root := &cobra.Command{
		Use:           "xhuma",
		Short:         "IHE XCA gateway translating GP Connect structured records into C-CDA",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML or JSON config file")

	root.AddCommand(serveCmd(&configFile))
	root.AddCommand(convertCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "xhuma:", err)
		os.Exit(1)
	}
}
