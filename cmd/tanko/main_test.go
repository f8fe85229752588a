package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"tanko/internal/catalog"
)

func TestParseVolumeArg(t *testing.T) {
	if _, err := parseVolumeArg(nil); err == nil {
		t.Fatal("expected error for missing argument")
	}
	if _, err := parseVolumeArg([]string{"zero"}); err == nil {
		t.Fatal("expected error for non-numeric argument")
	}
	if _, err := parseVolumeArg([]string{"0"}); err == nil {
		t.Fatal("expected error for zero volume")
	}
	volume, err := parseVolumeArg([]string{" 7 "})
	if err != nil {
		t.Fatalf("parseVolumeArg: %v", err)
	}
	if volume != 7 {
		t.Fatalf("parsed volume %d", volume)
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	var buf bytes.Buffer
	out := renderTable(
		&buf,
		[]string{"A", "B"},
		[][]string{{"only"}},
		[]columnAlignment{alignLeft, alignRight},
	)
	if !strings.Contains(out, "only") {
		t.Fatalf("rendered table missing cell: %s", out)
	}
	if renderTable(&buf, nil, nil, nil) != "" {
		t.Fatal("expected empty render for zero columns")
	}
}

func TestRenderTablePlainStyleForNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	if isTerminal(&buf) {
		t.Fatal("buffer reported as terminal")
	}
	out := renderTable(
		&buf,
		[]string{"Vol", "Pages"},
		[][]string{{"1", "182"}},
		[]columnAlignment{alignRight, alignRight},
	)
	if strings.Contains(out, "╭") {
		t.Fatalf("rounded borders for non-terminal writer: %s", out)
	}
	if !strings.Contains(out, "+---") {
		t.Fatalf("expected plain borders: %s", out)
	}
}

type fakeLister struct {
	summaries []catalog.MangaSummary
	manga     *catalog.Manga
	volumes   []catalog.Volume
}

func (f *fakeLister) ListManga(context.Context) ([]catalog.MangaSummary, error) {
	return f.summaries, nil
}

func (f *fakeLister) GetMangaBySlug(context.Context, string) (*catalog.Manga, error) {
	return f.manga, nil
}

func (f *fakeLister) ListVolumes(context.Context, string) ([]catalog.Volume, error) {
	return f.volumes, nil
}

func newOutputCommand() (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{}
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetContext(context.Background())
	return cmd, &buf
}

func TestListMangaTable(t *testing.T) {
	lister := &fakeLister{
		summaries: []catalog.MangaSummary{
			{
				Manga: catalog.Manga{
					Title:        "Steel Ball Run",
					Slug:         "steel-ball-run",
					Status:       catalog.StatusOngoing,
					TotalVolumes: 24,
					UpdatedAt:    time.Now(),
				},
				VolumeCount: 3,
			},
		},
	}
	cmd, buf := newOutputCommand()
	if err := listManga(cmd, lister, false); err != nil {
		t.Fatalf("listManga: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "steel-ball-run") || !strings.Contains(out, "3/24") {
		t.Fatalf("unexpected table output:\n%s", out)
	}
}

func TestListMangaEmpty(t *testing.T) {
	cmd, buf := newOutputCommand()
	if err := listManga(cmd, &fakeLister{}, false); err != nil {
		t.Fatalf("listManga: %v", err)
	}
	if !strings.Contains(buf.String(), "No manga recorded") {
		t.Fatalf("unexpected output: %s", buf.String())
	}
}

func TestListVolumesJSON(t *testing.T) {
	lister := &fakeLister{
		manga: &catalog.Manga{ID: "id-1", Slug: "steel-ball-run"},
		volumes: []catalog.Volume{
			{VolumeNumber: 1, PageCount: 210, ChapterRange: "1-8"},
		},
	}
	cmd, buf := newOutputCommand()
	if err := listVolumes(cmd, lister, "steel-ball-run", true); err != nil {
		t.Fatalf("listVolumes: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"volume": 1`) || !strings.Contains(out, `"chapters": "1-8"`) {
		t.Fatalf("unexpected json output:\n%s", out)
	}
}

func TestConfirm(t *testing.T) {
	cmd, _ := newOutputCommand()
	cmd.SetIn(strings.NewReader("y\n"))
	if !confirm(cmd, "proceed?") {
		t.Fatal("expected yes")
	}
	cmd.SetIn(strings.NewReader("\n"))
	if confirm(cmd, "proceed?") {
		t.Fatal("expected no for empty answer")
	}
	cmd.SetIn(strings.NewReader(""))
	if confirm(cmd, "proceed?") {
		t.Fatal("expected no on closed input")
	}
}

func TestRootCommandWiring(t *testing.T) {
	root := newRootCommand()
	for _, name := range []string{"convert", "upload", "record", "publish", "sync", "list", "serve", "watch", "status", "config"} {
		found := false
		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("command %s not registered", name)
		}
	}
}

func TestYesNo(t *testing.T) {
	if yesNo(true) != "yes" || yesNo(false) != "no" {
		t.Fatal("unexpected yesNo rendering")
	}
}
