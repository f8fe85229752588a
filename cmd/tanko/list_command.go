package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"tanko/internal/catalog"
)

type mangaLister interface {
	ListManga(ctx context.Context) ([]catalog.MangaSummary, error)
}

type volumeLister interface {
	GetMangaBySlug(ctx context.Context, slug string) (*catalog.Manga, error)
	ListVolumes(ctx context.Context, mangaID string) ([]catalog.Volume, error)
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list [slug]",
		Short: "List catalog manga, or the volumes of one manga",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 1 {
				return listVolumes(cmd, store, args[0], jsonOutput)
			}
			return listManga(cmd, store, jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

func listManga(cmd *cobra.Command, store mangaLister, jsonOutput bool) error {
	summaries, err := store.ListManga(cmd.Context())
	if err != nil {
		return err
	}
	if jsonOutput {
		type jsonManga struct {
			Title     string `json:"title"`
			Slug      string `json:"slug"`
			Status    string `json:"status"`
			Volumes   int    `json:"volumes"`
			TotalPlan int    `json:"total_volumes,omitempty"`
			CoverURL  string `json:"cover_url,omitempty"`
		}
		items := make([]jsonManga, 0, len(summaries))
		for _, summary := range summaries {
			items = append(items, jsonManga{
				Title:     summary.Title,
				Slug:      summary.Slug,
				Status:    string(summary.Status),
				Volumes:   summary.VolumeCount,
				TotalPlan: summary.TotalVolumes,
				CoverURL:  summary.CoverURL,
			})
		}
		return writeJSON(cmd, map[string]any{"manga": items})
	}

	if len(summaries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No manga recorded")
		return nil
	}
	rows := make([][]string, 0, len(summaries))
	for _, summary := range summaries {
		volumes := strconv.Itoa(summary.VolumeCount)
		if summary.TotalVolumes > 0 {
			volumes = fmt.Sprintf("%d/%d", summary.VolumeCount, summary.TotalVolumes)
		}
		rows = append(rows, []string{summary.Title, summary.Slug, string(summary.Status), volumes})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		cmd.OutOrStdout(),
		[]string{"Title", "Slug", "Status", "Volumes"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
	))
	return nil
}

func listVolumes(cmd *cobra.Command, store volumeLister, slug string, jsonOutput bool) error {
	manga, err := store.GetMangaBySlug(cmd.Context(), slug)
	if err != nil {
		return err
	}
	volumes, err := store.ListVolumes(cmd.Context(), manga.ID)
	if err != nil {
		return err
	}
	if jsonOutput {
		type jsonVolume struct {
			Volume   int    `json:"volume"`
			Pages    int    `json:"pages"`
			Chapters string `json:"chapters,omitempty"`
		}
		items := make([]jsonVolume, 0, len(volumes))
		for _, vol := range volumes {
			items = append(items, jsonVolume{Volume: vol.VolumeNumber, Pages: vol.PageCount, Chapters: vol.ChapterRange})
		}
		return writeJSON(cmd, map[string]any{"slug": slug, "volumes": items})
	}

	if len(volumes) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No volumes recorded for %s\n", slug)
		return nil
	}
	rows := make([][]string, 0, len(volumes))
	for _, vol := range volumes {
		rows = append(rows, []string{
			strconv.Itoa(vol.VolumeNumber),
			strconv.Itoa(vol.PageCount),
			vol.ChapterRange,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		cmd.OutOrStdout(),
		[]string{"Vol", "Pages", "Chapters"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft},
	))
	return nil
}
