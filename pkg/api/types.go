package api

type StartResult struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
	RunID   string `json:"chain_id,omitempty"`
}

type ClearResult struct {
	Deleted int    `json:"deleted"`
	Message string `json:"message"`
}

type startRequest struct {
	Categories []string `json:"categories"`
}

type CategoryRef struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

type TrendingRepo struct {
	ID                int           `json:"id"`
	FullName          string        `json:"full_name"`
	Description       string        `json:"description,omitempty"`
	StarsCount        int           `json:"stars_count"`
	StarsDelta24h     *int          `json:"stars_delta_24h"`
	StarsGained30d    *int          `json:"stars_gained_30d,omitempty"`
	CurrentTrendScore *float64      `json:"current_trend_score"`
	Categories        []CategoryRef `json:"categories"`
	Topics            []string      `json:"topics"`
	Snippet           string        `json:"snippet,omitempty"`
}

type TrendingPage struct {
	Items    []TrendingRepo `json:"items"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	Total    int            `json:"total"`
}

type SortBy string

const (
	SortByScore     SortBy = "score"
	SortByRecency   SortBy = "recency"
	SortByRecent30d SortBy = "recent_30d"
)

// SortOptions lists the sort orders in display order.
var SortOptions = []SortBy{SortByScore, SortByRecency, SortByRecent30d}

func (s SortBy) Label() string {
	switch s {
	case SortByRecency:
		return "Recently pushed"
	case SortByRecent30d:
		return "Stars gained (30d)"
	default:
		return "Trend score"
	}
}

// Next cycles through SortOptions.
func (s SortBy) Next() SortBy {
	for i, o := range SortOptions {
		if o == s {
			return SortOptions[(i+1)%len(SortOptions)]
		}
	}
	return SortByScore
}

type TrendingQuery struct {
	Category string
	SortBy   SortBy
	Language string
	Page     int
	PageSize int
}

type Category struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	RepoCount   int    `json:"repo_count"`
}

type LanguageCount struct {
	Language string `json:"language"`
	Count    int    `json:"count"`
}

type Stats struct {
	TotalTrackedRepos     int             `json:"total_tracked_repos"`
	ReposPassingQuality   int             `json:"repos_passing_quality"`
	ReposAddedToday       int             `json:"repos_added_today"`
	ContentGeneratedToday int             `json:"content_generated_today"`
	TopLanguages          []LanguageCount `json:"top_languages"`
	LastIngestionAt       Timestamp       `json:"last_ingestion_at"`
}

type ContentBlock struct {
	Markdown    string    `json:"markdown"`
	GeneratedAt Timestamp `json:"generated_at"`
}

type TrendHistoryPoint struct {
	SnapshotAt         Timestamp `json:"snapshot_at"`
	StarsCount         int       `json:"stars_count"`
	StarsDelta24h      *int      `json:"stars_delta_24h"`
	ComputedTrendScore *float64  `json:"computed_trend_score"`
}

type RepositoryDetail struct {
	ID                int                     `json:"id"`
	FullName          string                  `json:"full_name"`
	Description       string                  `json:"description,omitempty"`
	HTMLURL           string                  `json:"html_url"`
	HomepageURL       string                  `json:"homepage_url,omitempty"`
	PrimaryLanguage   string                  `json:"primary_language,omitempty"`
	Topics            []string                `json:"topics"`
	LicenseSPDX       string                  `json:"license_spdx,omitempty"`
	StarsCount        int                     `json:"stars_count"`
	ForksCount        int                     `json:"forks_count"`
	OpenIssuesCount   int                     `json:"open_issues_count"`
	PushedAt          Timestamp               `json:"pushed_at_gh"`
	CurrentTrendScore *float64                `json:"current_trend_score"`
	QualityPassed     bool                    `json:"quality_passed"`
	TrendHistory      []TrendHistoryPoint     `json:"trend_history"`
	Content           map[string]ContentBlock `json:"content"`
}

type Health struct {
	Status  string `json:"status"`
	DB      string `json:"db"`
	Redis   string `json:"redis"`
	Version string `json:"version"`
}
