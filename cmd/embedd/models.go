package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"embedd/internal/common/fsutil"
)

// modelRow is one line of `embedd models`.
type modelRow struct {
	Alias   string `json:"alias"`
	Name    string `json:"name"`
	Backend string `json:"backend"`
	Path    string `json:"path"`
	Present bool   `json:"present"`
}

func runModels(cmd *cobra.Command, o *options, asJSON bool) error {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return err
	}
	descs, err := cfg.Descriptors()
	if err != nil {
		return err
	}
	rows := make([]modelRow, 0, len(descs))
	for _, d := range descs {
		rows = append(rows, modelRow{
			Alias:   d.Alias,
			Name:    d.Name,
			Backend: d.Backend,
			Path:    d.Path,
			Present: fsutil.PathExists(d.Path),
		})
	}
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ALIAS\tNAME\tBACKEND\tPRESENT\tPATH")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", r.Alias, r.Name, r.Backend, r.Present, r.Path)
	}
	return tw.Flush()
}
