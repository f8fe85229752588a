package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tanko/internal/pipeline"
)

func parseVolumeArg(args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected exactly one volume number")
	}
	volume, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil || volume < 1 {
		return 0, fmt.Errorf("invalid volume number %q", args[0])
	}
	return volume, nil
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "convert <volume>",
		Short: "Convert a source volume's page scans to WebP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			volume, err := parseVolumeArg(args)
			if err != nil {
				return err
			}
			p, cleanup, err := ctx.newPipeline()
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := p.Convert(cmd.Context(), volume)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, map[string]any{
					"volume":     volume,
					"page_count": result.PageCount,
					"converted":  result.Converted,
					"skipped":    result.Skipped,
					"errors":     result.Errors,
					"output_dir": result.OutputDir,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Volume %d: %d converted, %d skipped, %d errors (%d pages)\n",
				volume, result.Converted, result.Skipped, result.Errors, result.PageCount)
			fmt.Fprintf(out, "Output: %s\n", result.OutputDir)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "upload <volume>",
		Short: "Upload a converted volume to the bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			volume, err := parseVolumeArg(args)
			if err != nil {
				return err
			}
			p, cleanup, err := ctx.newPipeline()
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := p.Upload(cmd.Context(), volume)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, map[string]any{
					"volume":   volume,
					"uploaded": result.Uploaded,
					"errors":   result.Errors,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Volume %d: %d uploaded, %d errors\n",
				volume, result.Uploaded, result.Errors)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

func newRecordCommand(ctx *commandContext) *cobra.Command {
	var pages int
	var chapters string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "record <volume>",
		Short: "Record or update a volume's catalog entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			volume, err := parseVolumeArg(args)
			if err != nil {
				return err
			}
			if pages < 1 {
				return fmt.Errorf("--pages must be positive")
			}
			p, cleanup, err := ctx.newPipeline()
			if err != nil {
				return err
			}
			defer cleanup()

			vol, err := p.Record(cmd.Context(), volume, pages, chapters)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, map[string]any{
					"volume":        vol.VolumeNumber,
					"page_count":    vol.PageCount,
					"chapter_range": vol.ChapterRange,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded volume %d (%d pages)\n", vol.VolumeNumber, vol.PageCount)
			return nil
		},
	}
	cmd.Flags().IntVar(&pages, "pages", 0, "Number of logical pages in the volume")
	cmd.Flags().StringVar(&chapters, "chapters", "", "Chapter range covered by the volume (e.g. \"1-8\")")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	_ = cmd.MarkFlagRequired("pages")
	return cmd
}

func newPublishCommand(ctx *commandContext) *cobra.Command {
	var all bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "publish [volume]",
		Short: "Convert, upload, and record volumes in one pass",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return fmt.Errorf("pass a volume number or --all, not both")
			}
			p, cleanup, err := ctx.newPipeline()
			if err != nil {
				return err
			}
			defer cleanup()

			var reports []pipeline.VolumeReport
			if all {
				reports, err = p.PublishAll(cmd.Context())
			} else {
				var volume int
				volume, err = parseVolumeArg(args)
				if err != nil {
					return err
				}
				var report pipeline.VolumeReport
				report, err = p.PublishVolume(cmd.Context(), volume)
				reports = append(reports, report)
			}
			if jsonOutput {
				if jsonErr := writeJSON(cmd, map[string]any{"volumes": reports}); jsonErr != nil {
					return jsonErr
				}
				return err
			}

			out := cmd.OutOrStdout()
			for _, report := range reports {
				fmt.Fprintf(out, "Volume %d: %d pages, %d converted, %d skipped, %d uploaded, %d errors\n",
					report.Volume, report.PageCount, report.Converted, report.Skipped, report.Uploaded, report.Errors)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Publish every volume folder in the source directory")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}
