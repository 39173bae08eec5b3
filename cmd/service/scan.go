package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"ansible-webui/internal/catalog"
	"ansible-webui/internal/server"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List the playbooks found in the playbook directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := server.NewServerBuilder(manager).LoadConfig()
		if err != nil {
			return err
		}

		entries := catalog.NewScanner(cfg.WorkDir).Scan()
		out := cmd.OutOrStdout()

		if jsonOutput {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}

		if len(entries) == 0 {
			fmt.Fprintf(out, "No playbooks found in %s\n", cfg.WorkDir)
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "PATH\tDESCRIPTION\tPLAYS")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Path, e.Description, strings.Join(e.Plays, ", "))
		}
		return tw.Flush()
	},
}
