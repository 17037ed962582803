package fakeapi

import (
	"time"

	"github.com/go-go-golems/trendctl/pkg/api"
)

func SeedCategories() []api.Category {
	return []api.Category{
		{Slug: "ai-ml", Name: "AI / ML", Description: "Models, agents and inference tooling"},
		{Slug: "devtools", Name: "Developer Tools", Description: "Editors, linters, build systems"},
		{Slug: "backend", Name: "Backend", Description: "Servers, databases, queues"},
	}
}

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

// SeedRepositories returns a small fixed catalog. Repository membership in a
// category is expressed through its topics.
func SeedRepositories(now time.Time) []api.RepositoryDetail {
	ts := func(d time.Duration) api.Timestamp { return api.Timestamp{Time: now.Add(-d).UTC()} }
	return []api.RepositoryDetail{
		{
			ID:                1,
			FullName:          "acme/agentkit",
			Description:       "Composable agents for long-running tasks",
			HTMLURL:           "https://github.com/acme/agentkit",
			PrimaryLanguage:   "Python",
			Topics:            []string{"ai-ml"},
			LicenseSPDX:       "MIT",
			StarsCount:        4210,
			ForksCount:        301,
			OpenIssuesCount:   42,
			PushedAt:          ts(3 * time.Hour),
			QualityPassed:     true,
			CurrentTrendScore: floatp(91.4),
			TrendHistory: []api.TrendHistoryPoint{
				{SnapshotAt: ts(48 * time.Hour), StarsCount: 3900, StarsDelta24h: intp(140), ComputedTrendScore: floatp(84.0)},
				{SnapshotAt: ts(24 * time.Hour), StarsCount: 4210, StarsDelta24h: intp(310), ComputedTrendScore: floatp(91.4)},
			},
			Content: map[string]api.ContentBlock{
				"summary": {Markdown: "AgentKit wires **tools**, memory and planners into one loop.", GeneratedAt: ts(time.Hour)},
				"tweet":   {Markdown: "AgentKit just crossed 4k stars.", GeneratedAt: ts(time.Hour)},
			},
		},
		{
			ID:                2,
			FullName:          "fastbuild/fb",
			Description:       "Incremental builds without the config",
			HTMLURL:           "https://github.com/fastbuild/fb",
			PrimaryLanguage:   "Go",
			Topics:            []string{"devtools"},
			LicenseSPDX:       "Apache-2.0",
			StarsCount:        1280,
			ForksCount:        77,
			OpenIssuesCount:   9,
			PushedAt:          ts(20 * time.Minute),
			QualityPassed:     true,
			CurrentTrendScore: floatp(72.8),
			TrendHistory: []api.TrendHistoryPoint{
				{SnapshotAt: ts(24 * time.Hour), StarsCount: 1280, StarsDelta24h: intp(95), ComputedTrendScore: floatp(72.8)},
			},
		},
		{
			ID:                3,
			FullName:          "queuely/queuely",
			Description:       "A tiny durable queue",
			HTMLURL:           "https://github.com/queuely/queuely",
			PrimaryLanguage:   "Go",
			Topics:            []string{"backend"},
			StarsCount:        640,
			ForksCount:        21,
			OpenIssuesCount:   3,
			PushedAt:          ts(5 * 24 * time.Hour),
			CurrentTrendScore: floatp(55.1),
		},
		{
			ID:              4,
			FullName:        "tensorlite/tl",
			Description:     "Inference on small devices",
			HTMLURL:         "https://github.com/tensorlite/tl",
			PrimaryLanguage: "Rust",
			Topics:          []string{"ai-ml", "backend"},
			StarsCount:      2050,
			ForksCount:      160,
			OpenIssuesCount: 31,
			PushedAt:        ts(26 * time.Hour),
			QualityPassed:   true,
		},
	}
}
