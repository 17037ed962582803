// Package fakeapi serves a scripted stand-in for the ingestion backend. Runs
// advance one stage per status query, which keeps tests deterministic and
// lets the fake-pipeline test app drive the TUI without a real backend.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-go-golems/trendctl/pkg/api"
	"github.com/go-go-golems/trendctl/pkg/runstate"
	"github.com/rs/zerolog/log"
)

const Prefix = "/api/v1"

type Options struct {
	// Steps defaults to runstate.DefaultStepNames.
	Steps []string
	// QueriesPerStep is how many status queries each step stays running.
	QueriesPerStep int
	// FailStep names the step that fails the run.
	FailStep    string
	FailMessage string
	// Refuse makes every run request come back not started.
	Refuse        bool
	RefuseMessage string
	Version       string
	Now           func() time.Time
}

type fakeRun struct {
	id      string
	scope   []string
	queries int
	status  runstate.RunState
}

type Server struct {
	opts Options

	mu         sync.Mutex
	nextID     int
	current    *fakeRun
	runs       map[string]*fakeRun
	repos      []api.RepositoryDetail
	categories []api.Category
	lastIngest time.Time
	started    int
	resets     int
}

func New(opts Options) *Server {
	if len(opts.Steps) == 0 {
		opts.Steps = append([]string{}, runstate.DefaultStepNames...)
	}
	if opts.QueriesPerStep <= 0 {
		opts.QueriesPerStep = 1
	}
	if opts.FailMessage == "" {
		opts.FailMessage = "step crashed"
	}
	if opts.RefuseMessage == "" {
		opts.RefuseMessage = "Pipeline is already running"
	}
	if opts.Version == "" {
		opts.Version = "fake"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{
		opts:       opts,
		runs:       map[string]*fakeRun{},
		categories: SeedCategories(),
	}
	s.repos = SeedRepositories(opts.Now())
	return s
}

// Handler serves the API under Prefix.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /pipeline/run", s.handleRun)
	mux.HandleFunc("GET /pipeline/status/{id}", s.handleStatus)
	mux.HandleFunc("POST /pipeline/reset", s.handleReset)
	mux.HandleFunc("GET /trending", s.handleTrending)
	mux.HandleFunc("GET /categories", s.handleCategories)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /repositories/{id}", s.handleRepository)
	mux.HandleFunc("GET /health", s.handleHealth)

	return http.StripPrefix(Prefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("fakeapi request")
		mux.ServeHTTP(w, r)
	}))
}

// Started reports how many runs were accepted.
func (s *Server) Started() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func (s *Server) Resets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resets
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Categories []string `json:"categories"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, "invalid body: "+err.Error())
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, slug := range req.Categories {
		if !s.hasCategory(slug) {
			writeDetail(w, http.StatusBadRequest, fmt.Sprintf("Unknown category: %s", slug))
			return
		}
	}
	if s.opts.Refuse || (s.current != nil && !s.current.status.Status.IsTerminal()) {
		writeJSON(w, http.StatusOK, api.StartResult{Started: false, Message: s.opts.RefuseMessage})
		return
	}

	s.nextID++
	id := fmt.Sprintf("chain-%04d", s.nextID)
	run := &fakeRun{
		id:     id,
		scope:  req.Categories,
		status: runstate.RunState{RunID: id, Status: runstate.RunRunning, Steps: pendingSteps(s.opts.Steps)},
	}
	s.runs[run.id] = run
	s.current = run
	s.started++
	writeJSON(w, http.StatusOK, api.StartResult{Started: true, Message: "Pipeline started", RunID: run.id})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Unknown chain id")
		return
	}
	if !run.status.Status.IsTerminal() {
		run.queries++
		s.advance(run)
	}
	writeJSON(w, http.StatusOK, run.status)
}

// advance recomputes the run's snapshot from how often it has been queried.
func (s *Server) advance(run *fakeRun) {
	steps := s.opts.Steps
	pos := (run.queries - 1) / s.opts.QueriesPerStep

	st := runstate.RunState{RunID: run.id, Status: runstate.RunRunning, Steps: pendingSteps(steps)}
	for i := range st.Steps {
		switch {
		case i < pos:
			st.Steps[i].Status = runstate.StepSuccess
		case i == pos:
			st.Steps[i].Status = runstate.StepRunning
			st.CurrentStepIndex = runstate.IntPtr(i)
		}
	}

	if fail := s.failIndex(); fail >= 0 && pos > fail {
		st.Steps[fail].Status = runstate.StepFailure
		for i := fail + 1; i < len(st.Steps); i++ {
			st.Steps[i].Status = runstate.StepPending
		}
		st.CurrentStepIndex = runstate.IntPtr(fail)
		st.Status = runstate.RunFailure
		st.Error = s.opts.FailMessage
	} else if pos >= len(steps) {
		st.Status = runstate.RunSuccess
		st.CurrentStepIndex = nil
		s.ingest(run)
	}
	run.status = st
}

func (s *Server) failIndex() int {
	if s.opts.FailStep == "" {
		return -1
	}
	for i, name := range s.opts.Steps {
		if name == s.opts.FailStep {
			return i
		}
	}
	return -1
}

func (s *Server) ingest(run *fakeRun) {
	s.lastIngest = s.opts.Now()
	for i := range s.repos {
		if len(run.scope) > 0 && !repoInAny(s.repos[i], run.scope) {
			continue
		}
		s.repos[i].StarsCount += 10
	}
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && !s.current.status.Status.IsTerminal() {
		writeDetail(w, http.StatusConflict, "Cannot reset while the pipeline is running")
		return
	}
	n := len(s.repos)
	s.repos = nil
	s.lastIngest = time.Time{}
	s.resets++
	writeJSON(w, http.StatusOK, api.ClearResult{Deleted: n, Message: fmt.Sprintf("Deleted %d repositories", n)})
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := atoiDefault(q.Get("page"), 1)
	size := atoiDefault(q.Get("page_size"), 25)
	if page < 1 || size < 1 || size > 100 {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid paging")
		return
	}
	category := q.Get("category")
	language := strings.ToLower(q.Get("language"))
	sortBy := api.SortBy(q.Get("sort_by"))

	s.mu.Lock()
	items := make([]api.RepositoryDetail, 0, len(s.repos))
	for _, d := range s.repos {
		if category != "" && !repoInAny(d, []string{category}) {
			continue
		}
		if language != "" && strings.ToLower(d.PrimaryLanguage) != language {
			continue
		}
		items = append(items, d)
	}
	s.mu.Unlock()

	sort.SliceStable(items, func(i, j int) bool {
		switch sortBy {
		case api.SortByRecency:
			return items[i].PushedAt.After(items[j].PushedAt.Time)
		default:
			return score(items[i]) > score(items[j])
		}
	})

	out := api.TrendingPage{Items: []api.TrendingRepo{}, Page: page, PageSize: size, Total: len(items)}
	start := (page - 1) * size
	for i := start; i < len(items) && i < start+size; i++ {
		out.Items = append(out.Items, trendingItem(items[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Category, 0, len(s.categories))
	for _, c := range s.categories {
		c.RepoCount = 0
		for _, d := range s.repos {
			if repoInAny(d, []string{c.Slug}) {
				c.RepoCount++
			}
		}
		out = append(out, c)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := api.Stats{TotalTrackedRepos: len(s.repos), TopLanguages: []api.LanguageCount{}}
	langs := map[string]int{}
	for _, d := range s.repos {
		if d.QualityPassed {
			st.ReposPassingQuality++
		}
		if len(d.Content) > 0 {
			st.ContentGeneratedToday++
		}
		if d.PrimaryLanguage != "" {
			langs[d.PrimaryLanguage]++
		}
	}
	for l, n := range langs {
		st.TopLanguages = append(st.TopLanguages, api.LanguageCount{Language: l, Count: n})
	}
	sort.Slice(st.TopLanguages, func(i, j int) bool {
		if st.TopLanguages[i].Count != st.TopLanguages[j].Count {
			return st.TopLanguages[i].Count > st.TopLanguages[j].Count
		}
		return st.TopLanguages[i].Language < st.TopLanguages[j].Language
	})
	st.LastIngestionAt = api.Timestamp{Time: s.lastIngest}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleRepository(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid id")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.repos {
		if d.ID == id {
			writeJSON(w, http.StatusOK, d)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Repository not found")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, api.Health{Status: "ok", DB: "ok", Redis: "ok", Version: s.opts.Version})
}

func (s *Server) hasCategory(slug string) bool {
	for _, c := range s.categories {
		if c.Slug == slug {
			return true
		}
	}
	return false
}

func pendingSteps(names []string) []runstate.Step {
	steps := make([]runstate.Step, 0, len(names))
	for _, n := range names {
		steps = append(steps, runstate.Step{Name: n, Status: runstate.StepPending})
	}
	return steps
}

func repoInAny(d api.RepositoryDetail, slugs []string) bool {
	for _, slug := range slugs {
		for _, t := range d.Topics {
			if t == slug {
				return true
			}
		}
	}
	return false
}

func score(d api.RepositoryDetail) float64 {
	if d.CurrentTrendScore == nil {
		return 0
	}
	return *d.CurrentTrendScore
}

func trendingItem(d api.RepositoryDetail) api.TrendingRepo {
	cats := make([]api.CategoryRef, 0, len(d.Topics))
	for _, t := range d.Topics {
		cats = append(cats, api.CategoryRef{Slug: t, Name: t})
	}
	var delta *int
	if n := len(d.TrendHistory); n > 0 {
		delta = d.TrendHistory[n-1].StarsDelta24h
	}
	return api.TrendingRepo{
		ID:                d.ID,
		FullName:          d.FullName,
		Description:       d.Description,
		StarsCount:        d.StarsCount,
		StarsDelta24h:     delta,
		CurrentTrendScore: d.CurrentTrendScore,
		Categories:        cats,
		Topics:            d.Topics,
	}
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("fakeapi encode response")
	}
}

func writeDetail(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}
