package cmds

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-go-golems/trendctl/pkg/api"
	"github.com/go-go-golems/trendctl/pkg/markdown"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newRepoCmd() *cobra.Command {
	var width int
	var raw bool
	var light bool

	cmd := &cobra.Command{
		Use:   "repo <id>",
		Short: "Show a repository with its trend history and generated content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id <= 0 {
				return errors.Errorf("invalid repository id %q", args[0])
			}
			opts, err := getRootOptions(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout())
			defer cancel()

			d, err := opts.Client().Repository(ctx, id)
			if err != nil {
				return err
			}
			doc := repoDocument(d)
			if !raw {
				doc = markdown.NewRenderer(!light).Render(doc, width)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), doc)
			return nil
		},
	}

	cmd.Flags().IntVar(&width, "width", 100, "Wrap width for rendered markdown")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print markdown without rendering")
	cmd.Flags().BoolVar(&light, "light", false, "Use the light color style")
	return cmd
}

func repoDocument(d api.RepositoryDetail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", d.FullName)
	if d.Description != "" {
		b.WriteString(d.Description + "\n\n")
	}

	facts := []string{
		fmt.Sprintf("**%d** stars", d.StarsCount),
		fmt.Sprintf("**%d** forks", d.ForksCount),
		fmt.Sprintf("**%d** open issues", d.OpenIssuesCount),
	}
	if d.PrimaryLanguage != "" {
		facts = append(facts, d.PrimaryLanguage)
	}
	if d.LicenseSPDX != "" {
		facts = append(facts, d.LicenseSPDX)
	}
	if d.CurrentTrendScore != nil {
		facts = append(facts, "trend score "+strconv.FormatFloat(*d.CurrentTrendScore, 'f', 1, 64))
	}
	b.WriteString(strings.Join(facts, " · ") + "\n\n")
	if d.HTMLURL != "" {
		b.WriteString(d.HTMLURL + "\n\n")
	}
	if len(d.Topics) > 0 {
		b.WriteString("Topics: " + strings.Join(d.Topics, ", ") + "\n\n")
	}

	if len(d.TrendHistory) > 0 {
		b.WriteString("## Trend history\n\n| Snapshot | Stars | 24h | Score |\n|---|---:|---:|---:|\n")
		for _, p := range d.TrendHistory {
			when := "–"
			if !p.SnapshotAt.IsZero() {
				when = p.SnapshotAt.Format("2006-01-02 15:04")
			}
			delta, score := "–", "–"
			if p.StarsDelta24h != nil {
				delta = strconv.Itoa(*p.StarsDelta24h)
			}
			if p.ComputedTrendScore != nil {
				score = strconv.FormatFloat(*p.ComputedTrendScore, 'f', 1, 64)
			}
			fmt.Fprintf(&b, "| %s | %d | %s | %s |\n", when, p.StarsCount, delta, score)
		}
		b.WriteString("\n")
	}

	for _, kind := range d.ContentKinds() {
		if s := markdown.Section(strings.ReplaceAll(kind, "_", " "), d.Content[kind].Markdown); s != "" {
			b.WriteString(s + "\n\n")
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
