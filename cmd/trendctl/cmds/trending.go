package cmds

import (
	"context"
	"strings"

	"github.com/go-go-golems/glazed/pkg/cli"
	glazedcmds "github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/go-go-golems/trendctl/pkg/api"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// rootBound gives a glazed command access to the root persistent flags of the
// cobra command it was built into.
type rootBound struct {
	cobra *cobra.Command
}

func (b *rootBound) rootOptions() (rootOptions, error) {
	if b.cobra == nil {
		return rootOptions{}, errors.New("command not attached to a cobra root")
	}
	return getRootOptions(b.cobra)
}

type TrendingCommand struct {
	*glazedcmds.CommandDescription
	rootBound
}

var _ glazedcmds.GlazeCommand = (*TrendingCommand)(nil)

type TrendingSettings struct {
	Category string `glazed.parameter:"category"`
	Sort     string `glazed.parameter:"sort"`
	Language string `glazed.parameter:"language"`
	Page     int    `glazed.parameter:"page"`
	PageSize int    `glazed.parameter:"page-size"`
}

func NewTrendingCommand() (*TrendingCommand, error) {
	glazedLayer, err := settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, err
	}

	sorts := make([]string, 0, len(api.SortOptions))
	for _, s := range api.SortOptions {
		sorts = append(sorts, string(s))
	}

	return &TrendingCommand{
		CommandDescription: glazedcmds.NewCommandDescription(
			"trending",
			glazedcmds.WithShort("List trending repositories"),
			glazedcmds.WithFlags(
				parameters.NewParameterDefinition(
					"category",
					parameters.ParameterTypeString,
					parameters.WithHelp("Only list repositories in this category slug"),
					parameters.WithDefault(""),
				),
				parameters.NewParameterDefinition(
					"sort",
					parameters.ParameterTypeChoice,
					parameters.WithChoices(sorts...),
					parameters.WithHelp("Sort order"),
					parameters.WithDefault(string(api.SortByScore)),
				),
				parameters.NewParameterDefinition(
					"language",
					parameters.ParameterTypeString,
					parameters.WithHelp("Only list repositories whose primary language matches"),
					parameters.WithDefault(""),
				),
				parameters.NewParameterDefinition(
					"page",
					parameters.ParameterTypeInteger,
					parameters.WithHelp("Page number, starting at 1"),
					parameters.WithDefault(1),
				),
				parameters.NewParameterDefinition(
					"page-size",
					parameters.ParameterTypeInteger,
					parameters.WithHelp("Rows per page (0 = config page_size)"),
					parameters.WithDefault(0),
				),
			),
			glazedcmds.WithLayersList(glazedLayer),
		),
	}, nil
}

func (c *TrendingCommand) RunIntoGlazeProcessor(ctx context.Context, parsedLayers *layers.ParsedLayers, gp middlewares.Processor) error {
	s := &TrendingSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, s); err != nil {
		return err
	}
	opts, err := c.rootOptions()
	if err != nil {
		return err
	}
	q := api.TrendingQuery{
		Category: strings.TrimSpace(s.Category),
		SortBy:   api.SortBy(s.Sort),
		Language: strings.TrimSpace(s.Language),
		Page:     s.Page,
		PageSize: s.PageSize,
	}
	if q.PageSize <= 0 {
		q.PageSize = opts.Config.PageSize
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout())
	defer cancel()
	page, err := opts.Client().Trending(ctx, q)
	if err != nil {
		return err
	}
	for _, r := range page.Items {
		if err := gp.AddRow(ctx, trendingRow(r)); err != nil {
			return err
		}
	}
	return nil
}

func trendingRow(r api.TrendingRepo) types.Row {
	cats := make([]string, 0, len(r.Categories))
	for _, c := range r.Categories {
		cats = append(cats, c.Slug)
	}
	var delta, score any
	if r.StarsDelta24h != nil {
		delta = *r.StarsDelta24h
	}
	if r.CurrentTrendScore != nil {
		score = *r.CurrentTrendScore
	}
	return types.NewRow(
		types.MRP("id", r.ID),
		types.MRP("full_name", r.FullName),
		types.MRP("stars", r.StarsCount),
		types.MRP("stars_delta_24h", delta),
		types.MRP("trend_score", score),
		types.MRP("categories", strings.Join(cats, ",")),
		types.MRP("description", r.Description),
	)
}

func newTrendingCmd() (*cobra.Command, error) {
	c, err := NewTrendingCommand()
	if err != nil {
		return nil, err
	}
	cmd, err := cli.BuildCobraCommand(c, cli.WithParserConfig(cli.CobraParserConfig{AppName: "trendctl"}))
	if err != nil {
		return nil, err
	}
	c.cobra = cmd
	return cmd, nil
}

type CategoriesCommand struct {
	*glazedcmds.CommandDescription
	rootBound
}

var _ glazedcmds.GlazeCommand = (*CategoriesCommand)(nil)

func NewCategoriesCommand() (*CategoriesCommand, error) {
	glazedLayer, err := settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, err
	}
	return &CategoriesCommand{
		CommandDescription: glazedcmds.NewCommandDescription(
			"categories",
			glazedcmds.WithShort("List categories with their repository counts"),
			glazedcmds.WithLayersList(glazedLayer),
		),
	}, nil
}

func (c *CategoriesCommand) RunIntoGlazeProcessor(ctx context.Context, parsedLayers *layers.ParsedLayers, gp middlewares.Processor) error {
	opts, err := c.rootOptions()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout())
	defer cancel()
	cats, err := opts.Client().Categories(ctx)
	if err != nil {
		return err
	}
	for _, cat := range cats {
		row := types.NewRow(
			types.MRP("slug", cat.Slug),
			types.MRP("name", cat.Name),
			types.MRP("repo_count", cat.RepoCount),
			types.MRP("description", cat.Description),
		)
		if err := gp.AddRow(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

func newCategoriesCmd() (*cobra.Command, error) {
	c, err := NewCategoriesCommand()
	if err != nil {
		return nil, err
	}
	cmd, err := cli.BuildCobraCommand(c, cli.WithParserConfig(cli.CobraParserConfig{AppName: "trendctl"}))
	if err != nil {
		return nil, err
	}
	c.cobra = cmd
	return cmd, nil
}
