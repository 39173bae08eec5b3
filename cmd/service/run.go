package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	model "ansible-webui/datamodel/service-model"
	"ansible-webui/internal/catalog"
	"ansible-webui/internal/server"

	"github.com/spf13/cobra"
)

var (
	runHosts  string
	runDryRun bool
)

var runCmd = &cobra.Command{
	Use:   "run [playbook]",
	Short: "Run a playbook once, as the web form would",
	Long:  "Run a playbook once with the same defaults and checks as the web form. Without arguments default_ping.yml is run against localhost.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		builder := server.NewServerBuilder(manager)
		defer builder.Cleanup()

		cfg, err := builder.LoadConfig()
		if err != nil {
			return err
		}

		req := model.ExecutionRequest{TargetHosts: runHosts}
		if len(args) == 1 {
			req.PlaybookPath = args[0]
		}
		out := cmd.OutOrStdout()
		client := server.NewAnsibleClient(cfg, catalog.NewScanner(cfg.WorkDir))

		if runDryRun {
			argv := client.Command(req)
			if jsonOutput {
				return json.NewEncoder(out).Encode(argv)
			}
			fmt.Fprintln(out, strings.Join(argv, " "))
			return nil
		}

		result := client.Execute(context.Background(), req)

		if jsonOutput {
			if err := json.NewEncoder(out).Encode(result); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(out, "Inventory: %s\nPlaybook:  %s\n\n%s\n", result.InventoryDisplay, result.PlaybookDisplay, result.OutputText)
		}

		if result.IsError {
			return fmt.Errorf("playbook run failed (%s)", result.Kind)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runHosts, "hosts", "", "Target hosts, as typed into the web form (default localhost)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Print the ansible-playbook command line without running it")
}
