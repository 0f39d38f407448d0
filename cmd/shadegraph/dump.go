package main

import (
	"github.com/spf13/cobra"

	"github.com/gogpu/shadegraph/network"
)

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump FILE",
		Short: "Print a material network as resolution sees it",
		Long: `Dump decodes a YAML network, applies the render context selector to its
terminals and prints the result in the dump format.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			path, net, err := readNetwork(args[0], cfg.Selector)
			if err != nil {
				return err
			}
			return network.Dump(cmd.OutOrStdout(), path, net)
		},
	}
}
