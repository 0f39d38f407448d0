package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newNodesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nodes",
		Short: "List registered node types",
		Long: `Nodes lists the built-in node types plus every node found by scanning
the definitions root.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
			if err != nil {
				return err
			}
			s, err := newSession(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tGROUP\tSOURCE\tFILE")
			for _, id := range s.registry.IDs() {
				n, ok := s.registry.Lookup(id)
				if !ok {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", id, n.Info.Group, n.Info.Source, n.Info.Path)
			}
			return tw.Flush()
		},
	}
}
