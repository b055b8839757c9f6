package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// buildRootCmd constructs the command tree bound to o.
func buildRootCmd(o *options) *cobra.Command {
	root := &cobra.Command{
		Use:           "embedd",
		Short:         "Text embedding service with a fault-tolerant model registry",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	o.bindGlobal(root)

	serveCmd := &cobra.Command{
		Use:     "serve",
		Short:   "Load configured models and serve the HTTP API",
		Example: "  embedd serve --config embedd.yaml\n  embedd serve --models-dir ./model --addr :8080",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, o)
		},
	}
	o.bindServe(serveCmd)

	var asJSON bool
	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "List configured models and whether their artifacts are present",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModels(cmd, o, asJSON)
		},
	}
	modelsCmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")

	var encodeModel string
	encodeCmd := &cobra.Command{
		Use:     "encode --model M text...",
		Short:   "Load one model and print embeddings for the given texts as JSON",
		Example: "  embedd encode --model bge_small_en_v1.5 \"hello\" \"world\"",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncode(cmd, o, encodeModel, args)
		},
	}
	encodeCmd.Flags().StringVar(&encodeModel, "model", envStr("EMBEDD_DEFAULT_MODEL", ""), "Model alias or canonical name")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "embedd %s\n", version)
		},
	}

	root.AddCommand(serveCmd, modelsCmd, encodeCmd, versionCmd)
	return root
}
