// Command shadegraph resolves material networks against a node registry
// and reports the backend nodes they produce.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "shadegraph",
		Short: "Material network resolution",
		Long: `shadegraph turns material networks into renderer materials.

Networks are YAML files (see "shadegraph dump"). Node types come from the
built-in set and from definition files under $RPR/materials.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (env: SHADEGRAPH_CONFIG)")
	flags.String("definitions", "", "definitions root containing materials/ (env: SHADEGRAPH_DEFINITIONS, RPR)")
	flags.String("selector", "rpr", "render context selector for terminals (env: RPRUSD_MATERIAL_NETWORK_SELECTOR)")
	flags.String("backend", "recorder", "backend name")
	flags.Int("workers", 0, "texture and resolution workers, 0 for GOMAXPROCS")
	flags.String("log-level", "info", "debug, info, warn or error")
	flags.String("dump-dir", "", "write each network to this directory before resolving")

	root.AddCommand(newResolveCmd(), newDumpCmd(), newNodesCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
