package cmds

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-go-golems/trendctl/pkg/api"
	"github.com/go-go-golems/trendctl/pkg/config"
	"github.com/go-go-golems/trendctl/pkg/fakeapi"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func newTestRoot(t *testing.T) *cobra.Command {
	t.Helper()
	root := &cobra.Command{Use: "trendctl", SilenceErrors: true, SilenceUsage: true}
	addRootFlags(root)
	require.NoError(t, AddCommands(root))
	return root
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvAPIURL, "")
	root := newTestRoot(t)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func fakeBackend(t *testing.T, opts fakeapi.Options) (*fakeapi.Server, string) {
	t.Helper()
	s := fakeapi.New(opts)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv.URL + fakeapi.Prefix
}

func TestRootOptions_Precedence(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "trendctl.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("api_url: http://file:8000/api/v1\npoll_interval: 4s\npage_size: 10\n"), 0o644))

	var got rootOptions
	root := &cobra.Command{Use: "trendctl"}
	addRootFlags(root)
	root.AddCommand(&cobra.Command{
		Use: "probe",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			got, err = getRootOptions(cmd)
			return err
		},
	})

	t.Setenv(config.EnvAPIURL, "http://env:8000/api/v1")
	root.SetArgs([]string{"probe", "--config", cfgPath})
	require.NoError(t, root.Execute())
	require.Equal(t, "http://env:8000/api/v1", got.Config.APIURL)
	require.Equal(t, 4*time.Second, got.Config.PollInterval.Std())
	require.Equal(t, 10, got.Config.PageSize)
	require.Equal(t, config.DefaultTimeout, got.Timeout())

	root.SetArgs([]string{"probe", "--config", cfgPath, "--api-url", "http://flag:9000/api/v1", "--poll-interval", "1s", "--max-poll-failures", "3"})
	require.NoError(t, root.Execute())
	require.Equal(t, "http://flag:9000/api/v1", got.Config.APIURL)
	require.Equal(t, time.Second, got.Config.PollInterval.Std())
	require.Equal(t, 3, got.Config.MaxPollFailures)
}

func TestRootOptions_Invalid(t *testing.T) {
	_, err := execute(t, "health", "--api-url", "ftp://nope")
	require.ErrorContains(t, err, "scheme must be http or https")

	_, err = execute(t, "health", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "read config")
}

func TestRunCmd_FollowsToSuccess(t *testing.T) {
	s, url := fakeBackend(t, fakeapi.Options{Steps: []string{"scrape", "score"}})

	out, err := execute(t, "run", "--api-url", url, "--poll-interval", "10ms", "--category", "ai-ml")
	require.NoError(t, err)
	require.Contains(t, out, "run chain-0001 started (scope: ai-ml)")
	require.Contains(t, out, "running  scrape")
	require.Contains(t, out, "success  score")
	require.Contains(t, out, "run chain-0001 succeeded")
	require.Equal(t, 1, s.Started())
}

func TestRunCmd_Failure(t *testing.T) {
	_, url := fakeBackend(t, fakeapi.Options{Steps: []string{"scrape", "score"}, FailStep: "score", FailMessage: "rate limited"})

	out, err := execute(t, "run", "--api-url", url, "--poll-interval", "10ms")
	require.EqualError(t, err, "run chain-0001 failed: rate limited")
	require.Contains(t, out, "failure  score")
}

func TestRunCmd_NotStarted(t *testing.T) {
	_, url := fakeBackend(t, fakeapi.Options{Refuse: true, RefuseMessage: "busy elsewhere"})

	_, err := execute(t, "run", "--api-url", url, "--poll-interval", "10ms")
	require.EqualError(t, err, "busy elsewhere")
}

func TestRunCmd_NoWait(t *testing.T) {
	_, url := fakeBackend(t, fakeapi.Options{QueriesPerStep: 5})

	out, err := execute(t, "run", "--api-url", url, "--poll-interval", "1h", "--no-wait")
	require.NoError(t, err)
	require.Contains(t, out, "run chain-0001 accepted, not waiting")
}

func TestStatusAndResetCmds(t *testing.T) {
	s, url := fakeBackend(t, fakeapi.Options{Steps: []string{"scrape"}})
	c := api.New(api.Options{BaseURL: url})
	res, err := c.StartRun(t.Context(), nil)
	require.NoError(t, err)

	out, err := execute(t, "status", res.RunID, "--api-url", url)
	require.NoError(t, err)
	var status struct {
		Run      struct{ Status string } `json:"run"`
		Done     int                     `json:"done"`
		Total    int                     `json:"total"`
		Terminal bool                    `json:"terminal"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	require.Equal(t, "running", status.Run.Status)
	require.Equal(t, 1, status.Total)
	require.False(t, status.Terminal)

	_, err = execute(t, "reset", "--api-url", url)
	require.ErrorContains(t, err, "--yes")
	require.Zero(t, s.Resets())

	_, err = execute(t, "reset", "--yes", "--api-url", url)
	require.ErrorContains(t, err, "Cannot reset while the pipeline is running")

	_, err = execute(t, "status", res.RunID, "--api-url", url)
	require.NoError(t, err)

	out, err = execute(t, "reset", "--yes", "--api-url", url)
	require.NoError(t, err)
	require.Contains(t, out, `"deleted": 4`)
	require.Equal(t, 1, s.Resets())
}

func TestRepoCmd_Raw(t *testing.T) {
	_, url := fakeBackend(t, fakeapi.Options{})

	out, err := execute(t, "repo", "1", "--raw", "--api-url", url)
	require.NoError(t, err)
	require.Contains(t, out, "# acme/agentkit")
	require.Contains(t, out, "| Snapshot | Stars | 24h | Score |")
	require.Less(t, bytes.Index([]byte(out), []byte("## summary")), bytes.Index([]byte(out), []byte("## tweet")))

	_, err = execute(t, "repo", "abc", "--api-url", url)
	require.ErrorContains(t, err, "invalid repository id")
}

func TestHealthCmd(t *testing.T) {
	_, url := fakeBackend(t, fakeapi.Options{Version: "1.2.3"})

	out, err := execute(t, "health", "--api-url", url)
	require.NoError(t, err)
	require.Contains(t, out, `"version": "1.2.3"`)
}
