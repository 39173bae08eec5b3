package main

import (
	"fmt"
	"os"

	"ansible-webui/internal/config"
	"ansible-webui/internal/server"

	"github.com/spf13/cobra"
)

var (
	configFile string
	jsonOutput bool
	manager    *config.Manager
)

var rootCmd = &cobra.Command{
	Use:           "ansible-webui",
	Short:         "Web front-end for running Ansible playbooks",
	Long:          "ansible-webui lists the playbooks in a directory and runs them with ansible-playbook from a browser form or a JSON API.",
	Version:       server.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		manager = config.NewManager(nil)
		if err := manager.BindFlags(cmd.Flags()); err != nil {
			return err
		}
		return manager.SetConfigFile(configFile)
	},
	RunE: runServe,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Configuration file (yaml, json or toml)")
	pf.BoolVar(&jsonOutput, "json", false, "Output raw JSON")

	pf.String("host", "", "Interface to listen on (env HOST)")
	pf.String("port", "", "Port to listen on (env PORT)")
	pf.String("work-dir", "", "Directory scanned for playbooks (env PLAYBOOK_DIR)")
	pf.String("ansible-bin", "", "ansible-playbook executable (env ANSIBLE_PLAYBOOK_BIN)")
	pf.String("exec-timeout", "", "Maximum run time of one playbook, e.g. 5m (env EXEC_TIMEOUT)")
	pf.Int("rate-limit", 0, "Run and sync requests allowed per second (env RATE_LIMIT_REQUESTS_PER_SECOND)")
	pf.Bool("restrict-to-catalog", false, "Only run playbooks found by the catalog scan (env RESTRICT_TO_CATALOG)")
	pf.String("log-level", "", "Log level (env LOG_LEVEL)")
	pf.String("ssh-private-key-file", "", "SSH private key used for remote hosts (env ANSIBLE_PRIVATE_KEY_FILE)")
	pf.String("repo-url", "", "Git repository synced into the playbooks directory (env PLAYBOOK_REPO_URL)")
	pf.String("repo-branch", "", "Branch of the playbook repository (env PLAYBOOK_REPO_BRANCH)")
	pf.Int("sync-interval-minutes", 0, "Minutes between repository syncs, 0 disables (env SYNC_INTERVAL_MINUTES)")

	rootCmd.AddCommand(serveCmd, scanCmd, runCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
