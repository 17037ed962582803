package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFilename = ".trendctl.yaml"
	DefaultAPIURL         = "http://localhost:8000/api/v1"
	DefaultPollInterval   = 2500 * time.Millisecond
	DefaultTimeout        = 15 * time.Second
	DefaultPageSize       = 25
	DefaultRefresh        = 30 * time.Second

	EnvAPIURL = "TRENDCTL_API_URL"
)

// Duration is a time.Duration that reads "2.5s" style strings from YAML.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return errors.Wrap(err, "duration")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return errors.Wrapf(err, "line %d: parse duration %q", value.Line, s)
	}
	*d = Duration(v)
	return nil
}

type File struct {
	APIURL          string   `yaml:"api_url,omitempty"`
	PollInterval    Duration `yaml:"poll_interval,omitempty"`
	MaxPollFailures int      `yaml:"max_poll_failures,omitempty"`
	RequestTimeout  Duration `yaml:"request_timeout,omitempty"`
	PageSize        int      `yaml:"page_size,omitempty"`
	RefreshInterval Duration `yaml:"refresh_interval,omitempty"`
	DefaultScope    []string `yaml:"default_scope,omitempty"`
}

func Default() *File {
	return &File{
		APIURL:          DefaultAPIURL,
		PollInterval:    Duration(DefaultPollInterval),
		RequestTimeout:  Duration(DefaultTimeout),
		PageSize:        DefaultPageSize,
		RefreshInterval: Duration(DefaultRefresh),
	}
}

// WithDefaults fills zero fields from Default.
func (f *File) WithDefaults() *File {
	out := *f
	d := Default()
	if strings.TrimSpace(out.APIURL) == "" {
		out.APIURL = d.APIURL
	}
	if out.PollInterval == 0 {
		out.PollInterval = d.PollInterval
	}
	if out.RequestTimeout == 0 {
		out.RequestTimeout = d.RequestTimeout
	}
	if out.PageSize == 0 {
		out.PageSize = d.PageSize
	}
	if out.RefreshInterval == 0 {
		out.RefreshInterval = d.RefreshInterval
	}
	out.DefaultScope = append([]string{}, f.DefaultScope...)
	return &out
}

// ApplyEnv lets TRENDCTL_API_URL override the file's api_url.
func (f *File) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookup(EnvAPIURL); ok && strings.TrimSpace(v) != "" {
		f.APIURL = strings.TrimSpace(v)
	}
}

func (f *File) Validate() error {
	u, err := url.Parse(f.APIURL)
	if err != nil {
		return errors.Wrapf(err, "api_url %q", f.APIURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Errorf("api_url %q: scheme must be http or https", f.APIURL)
	}
	if u.Host == "" {
		return errors.Errorf("api_url %q: missing host", f.APIURL)
	}
	if f.PollInterval < 0 {
		return errors.Errorf("poll_interval must not be negative (got %s)", f.PollInterval.Std())
	}
	if f.RequestTimeout < 0 {
		return errors.Errorf("request_timeout must not be negative (got %s)", f.RequestTimeout.Std())
	}
	if f.RefreshInterval < 0 {
		return errors.Errorf("refresh_interval must not be negative (got %s)", f.RefreshInterval.Std())
	}
	if f.MaxPollFailures < 0 {
		return errors.Errorf("max_poll_failures must not be negative (got %d)", f.MaxPollFailures)
	}
	if f.PageSize < 0 || f.PageSize > 100 {
		return errors.Errorf("page_size must be between 1 and 100 (got %d)", f.PageSize)
	}
	return nil
}

func DefaultPath(dir string) string {
	return filepath.Join(dir, DefaultConfigFilename)
}

func LoadFromFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	var cfg File
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse config yaml")
	}
	return &cfg, nil
}

func LoadOptional(path string) (*File, error) {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &File{}, nil
		}
		return nil, errors.Wrap(err, "stat config")
	}
	return LoadFromFile(path)
}
