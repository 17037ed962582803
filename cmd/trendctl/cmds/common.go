package cmds

import (
	"os"
	"path/filepath"
	"time"

	"github.com/go-go-golems/trendctl/pkg/api"
	"github.com/go-go-golems/trendctl/pkg/config"
	"github.com/go-go-golems/trendctl/pkg/controller"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type rootOptions struct {
	ConfigPath string
	Config     *config.File
}

func AddRootFlags(root *cobra.Command) {
	addRootFlags(root)
}

func addRootFlags(root *cobra.Command) {
	root.PersistentFlags().String("config", "", "Path to config file (defaults to .trendctl.yaml in the current directory)")
	root.PersistentFlags().String("api-url", "", "Backend API base URL (overrides config and "+config.EnvAPIURL+")")
	root.PersistentFlags().Duration("timeout", config.DefaultTimeout, "Timeout for a single backend request")
	root.PersistentFlags().Duration("poll-interval", config.DefaultPollInterval, "Interval between pipeline status queries")
	root.PersistentFlags().Int("max-poll-failures", 0, "Fail a run after this many consecutive status query failures (0 = never)")
}

// getRootOptions resolves settings with flags over environment over config file over defaults.
func getRootOptions(cmd *cobra.Command) (rootOptions, error) {
	flags := cmd.Root().PersistentFlags()

	cfgPath, err := flags.GetString("config")
	if err != nil {
		return rootOptions{}, err
	}
	explicit := cfgPath != ""
	if !explicit {
		cwd, err := os.Getwd()
		if err != nil {
			return rootOptions{}, err
		}
		cfgPath = config.DefaultPath(cwd)
	}
	cfgPath, err = filepath.Abs(cfgPath)
	if err != nil {
		return rootOptions{}, err
	}

	var cfg *config.File
	if explicit {
		cfg, err = config.LoadFromFile(cfgPath)
	} else {
		cfg, err = config.LoadOptional(cfgPath)
	}
	if err != nil {
		return rootOptions{}, errors.Wrapf(err, "config %s", cfgPath)
	}
	cfg.ApplyEnv(os.LookupEnv)

	if err := applyFlags(cfg, flags); err != nil {
		return rootOptions{}, err
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return rootOptions{}, errors.Wrap(err, "invalid configuration")
	}
	return rootOptions{ConfigPath: cfgPath, Config: cfg}, nil
}

// applyFlags copies explicitly set root flags over cfg.
func applyFlags(cfg *config.File, flags *pflag.FlagSet) error {
	if flags.Changed("api-url") {
		v, err := flags.GetString("api-url")
		if err != nil {
			return err
		}
		cfg.APIURL = v
	}
	if d, ok, err := positiveDuration(flags, "timeout"); err != nil {
		return err
	} else if ok {
		cfg.RequestTimeout = config.Duration(d)
	}
	if d, ok, err := positiveDuration(flags, "poll-interval"); err != nil {
		return err
	} else if ok {
		cfg.PollInterval = config.Duration(d)
	}
	if flags.Changed("max-poll-failures") {
		n, err := flags.GetInt("max-poll-failures")
		if err != nil {
			return err
		}
		cfg.MaxPollFailures = n
	}
	return nil
}

func positiveDuration(flags *pflag.FlagSet, name string) (time.Duration, bool, error) {
	if !flags.Changed(name) {
		return 0, false, nil
	}
	d, err := flags.GetDuration(name)
	if err != nil {
		return 0, false, err
	}
	if d <= 0 {
		return 0, false, errors.Errorf("%s must be > 0", name)
	}
	return d, true, nil
}

func (o rootOptions) Timeout() time.Duration {
	return o.Config.RequestTimeout.Std()
}

func (o rootOptions) Client() *api.Client {
	return api.New(api.Options{BaseURL: o.Config.APIURL, Timeout: o.Timeout()})
}

func (o rootOptions) NewController(client controller.Runner, hooks controller.Hooks) (*controller.Controller, error) {
	return controller.New(controller.Options{
		Client:          client,
		Interval:        o.Config.PollInterval.Std(),
		MaxPollFailures: o.Config.MaxPollFailures,
		Hooks:           hooks,
	})
}
