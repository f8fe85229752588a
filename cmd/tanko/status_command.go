package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tanko/internal/deps"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show configuration, dependency, and catalog status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			statuses := deps.CheckBinaries(deps.Required(cfg))

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			summaries, err := store.ListManga(cmd.Context())
			if err != nil {
				return err
			}
			volumeTotal := 0
			for _, summary := range summaries {
				volumeTotal += summary.VolumeCount
			}

			if jsonOutput {
				type jsonDep struct {
					Name      string `json:"name"`
					Command   string `json:"command"`
					Available bool   `json:"available"`
					Detail    string `json:"detail,omitempty"`
				}
				depItems := make([]jsonDep, 0, len(statuses))
				for _, status := range statuses {
					depItems = append(depItems, jsonDep{
						Name:      status.Name,
						Command:   status.Command,
						Available: status.Available,
						Detail:    status.Detail,
					})
				}
				return writeJSON(cmd, map[string]any{
					"database":       cfg.DatabasePath(),
					"source_dir":     cfg.Paths.SourceDir,
					"output_dir":     cfg.Paths.OutputDir,
					"bucket_enabled": cfg.Bucket.Enabled,
					"manga":          len(summaries),
					"volumes":        volumeTotal,
					"dependencies":   depItems,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database:   %s\n", cfg.DatabasePath())
			fmt.Fprintf(out, "Source:     %s\n", cfg.Paths.SourceDir)
			fmt.Fprintf(out, "Output:     %s\n", cfg.Paths.OutputDir)
			fmt.Fprintf(out, "Bucket:     %s\n", yesNo(cfg.Bucket.Enabled))
			fmt.Fprintf(out, "Catalog:    %d manga, %d volumes\n", len(summaries), volumeTotal)
			for _, status := range statuses {
				marker := "ok"
				if !status.Available {
					marker = "MISSING"
				}
				fmt.Fprintf(out, "Dependency: %s (%s) %s\n", status.Name, status.Command, marker)
				if status.Detail != "" {
					fmt.Fprintf(out, "            %s\n", status.Detail)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}
