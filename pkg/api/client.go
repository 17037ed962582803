package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-go-golems/trendctl/pkg/runstate"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const DefaultBaseURL = "http://localhost:8000/api/v1"

const (
	OpStartRun    = "pipeline.run"
	OpQueryStatus = "pipeline.status"
	OpClearData   = "pipeline.reset"
	OpTrending    = "trending"
	OpCategories  = "categories"
	OpStats       = "stats"
	OpRepository  = "repository"
	OpHealth      = "health"
)

// defaultReasons are surfaced when a failed response carries no body.
var defaultReasons = map[string]string{
	OpStartRun:    "Failed to trigger pipeline",
	OpQueryStatus: "Failed to fetch pipeline status",
	OpClearData:   "Failed to clear data",
	OpTrending:    "Failed to fetch trending",
	OpCategories:  "Failed to fetch categories",
	OpStats:       "Failed to fetch stats",
	OpRepository:  "Failed to fetch repository",
	OpHealth:      "Failed to fetch health",
}

const maxErrorBody = 64 << 10

type Options struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// Client talks to the ingestion backend. It holds no run state and is safe
// for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: base, http: hc}
}

func (c *Client) BaseURL() string { return c.baseURL }

// StartRun asks the backend to start a pipeline run. An empty scope sends no
// body, which the backend reads as "all categories".
func (c *Client) StartRun(ctx context.Context, scope runstate.Scope) (StartResult, error) {
	var body any
	if n := scope.Normalize(); len(n) > 0 {
		body = startRequest{Categories: []string(n)}
	}
	var out StartResult
	if err := c.doJSON(ctx, OpStartRun, http.MethodPost, "/pipeline/run", body, &out); err != nil {
		return StartResult{}, err
	}
	if !out.Started {
		out.RunID = ""
	}
	log.Debug().Bool("started", out.Started).Str("run_id", out.RunID).Str("scope", scope.String()).Msg("pipeline run requested")
	return out, nil
}

func (c *Client) QueryStatus(ctx context.Context, runID string) (runstate.RunState, error) {
	if runID == "" {
		return runstate.RunState{}, &RequestFailure{Op: OpQueryStatus, Reason: "missing run id"}
	}
	var st runstate.RunState
	if err := c.doJSON(ctx, OpQueryStatus, http.MethodGet, "/pipeline/status/"+url.PathEscape(runID), nil, &st); err != nil {
		return runstate.RunState{}, err
	}
	st = st.Normalize()
	if st.RunID == "" {
		st.RunID = runID
	}
	if err := st.Validate(); err != nil {
		return runstate.RunState{}, &RequestFailure{
			Op:         OpQueryStatus,
			StatusCode: http.StatusOK,
			Reason:     "invalid pipeline status: " + err.Error(),
			Err:        err,
		}
	}
	return st, nil
}

func (c *Client) ClearData(ctx context.Context) (ClearResult, error) {
	var out ClearResult
	if err := c.doJSON(ctx, OpClearData, http.MethodPost, "/pipeline/reset", nil, &out); err != nil {
		return ClearResult{}, err
	}
	return out, nil
}

func (c *Client) Trending(ctx context.Context, q TrendingQuery) (TrendingPage, error) {
	v := url.Values{}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.SortBy != "" {
		v.Set("sort_by", string(q.SortBy))
	}
	if q.Language != "" {
		v.Set("language", q.Language)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(q.PageSize))
	}
	path := "/trending"
	if enc := v.Encode(); enc != "" {
		path += "?" + enc
	}
	var out TrendingPage
	if err := c.doJSON(ctx, OpTrending, http.MethodGet, path, nil, &out); err != nil {
		return TrendingPage{}, err
	}
	return out, nil
}

func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var out []Category
	if err := c.doJSON(ctx, OpCategories, http.MethodGet, "/categories", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var out Stats
	if err := c.doJSON(ctx, OpStats, http.MethodGet, "/stats", nil, &out); err != nil {
		return Stats{}, err
	}
	return out, nil
}

func (c *Client) Repository(ctx context.Context, id int) (RepositoryDetail, error) {
	var out RepositoryDetail
	if err := c.doJSON(ctx, OpRepository, http.MethodGet, fmt.Sprintf("/repositories/%d", id), nil, &out); err != nil {
		return RepositoryDetail{}, err
	}
	return out, nil
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	if err := c.doJSON(ctx, OpHealth, http.MethodGet, "/health", nil, &out); err != nil {
		return Health{}, err
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return errors.Wrapf(err, "%s: marshal request", op)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &RequestFailure{Op: op, Reason: err.Error(), Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")

	resp, err := c.http.Do(req)
	if err != nil {
		return &RequestFailure{Op: op, Reason: err.Error(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeFailure(op, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RequestFailure{
			Op:         op,
			StatusCode: resp.StatusCode,
			Reason:     fmt.Sprintf("%s: decode response: %v", defaultReasons[op], err),
			Err:        err,
		}
	}
	return nil
}

func decodeFailure(op string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	reason := strings.TrimSpace(string(b))
	if reason == "" {
		reason = defaultReasons[op]
	}
	if reason == "" {
		reason = resp.Status
	}
	return &RequestFailure{
		Op:         op,
		StatusCode: resp.StatusCode,
		Reason:     reason,
		Err:        errors.Errorf("%s %s: status %d", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode),
	}
}
