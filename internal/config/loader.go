package config

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and an optional config file to
// produce a Config. Flags override file settings.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}

	cfg := &Config{
		Method:   http.MethodGet,
		Headers:  map[string]string{},
		Fields:   map[string]string{},
		Encoding: "gzip",
		Repeat:   1,
		Tracing:  TracingConfig{SampleRate: 1.0},
	}

	if configPath != "" {
		cfgViper := viper.New()
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
		if err := cfgViper.Unmarshal(cfg); err != nil {
			return nil, err
		}
		cfg.ConfigFile = configPath
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.Method = strings.ToUpper(strings.TrimSpace(cfg.Method))
	cfg.TargetURL = strings.TrimSpace(cfg.TargetURL)
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}
	if cfg.Fields == nil {
		cfg.Fields = map[string]string{}
	}

	return cfg, nil
}

// applyFlagOverrides applies command-line flag values to the config,
// overriding values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("target") {
		val, err := fs.GetString("target")
		if err != nil {
			return err
		}
		cfg.TargetURL = val
	}
	if fs.Changed("method") {
		val, err := fs.GetString("method")
		if err != nil {
			return err
		}
		cfg.Method = val
	}
	if fs.Changed("header") {
		val, err := fs.GetStringToString("header")
		if err != nil {
			return err
		}
		for k, v := range val {
			cfg.Headers[k] = v
		}
	}
	if fs.Changed("field") {
		val, err := fs.GetStringToString("field")
		if err != nil {
			return err
		}
		for k, v := range val {
			cfg.Fields[k] = v
		}
	}
	if fs.Changed("encoding") {
		val, err := fs.GetString("encoding")
		if err != nil {
			return err
		}
		cfg.Encoding = val
	}
	if fs.Changed("ca-bundle") {
		val, err := fs.GetString("ca-bundle")
		if err != nil {
			return err
		}
		cfg.CABundle = val
	}
	if fs.Changed("ca-path") {
		val, err := fs.GetString("ca-path")
		if err != nil {
			return err
		}
		cfg.CAPath = val
	}
	if fs.Changed("rate") {
		val, err := fs.GetInt("rate")
		if err != nil {
			return err
		}
		cfg.Rate = val
	}
	if fs.Changed("repeat") {
		val, err := fs.GetInt("repeat")
		if err != nil {
			return err
		}
		cfg.Repeat = val
	}
	if fs.Changed("access-token") {
		val, err := fs.GetString("access-token")
		if err != nil {
			return err
		}
		cfg.AccessToken = val
	}
	if fs.Changed("cred-file") {
		val, err := fs.GetString("cred-file")
		if err != nil {
			return err
		}
		cfg.CredFile = val
	}
	if fs.Changed("token-url") {
		val, err := fs.GetString("token-url")
		if err != nil {
			return err
		}
		cfg.TokenURL = val
	}
	if fs.Changed("show-options") {
		val, err := fs.GetBool("show-options")
		if err != nil {
			return err
		}
		cfg.ShowOptions = val
	}
	if fs.Changed("trace-endpoint") {
		val, err := fs.GetString("trace-endpoint")
		if err != nil {
			return err
		}
		cfg.Tracing.Endpoint = val
	}
	if fs.Changed("trace-sample-rate") {
		val, err := fs.GetFloat64("trace-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}
	if fs.Changed("trace-insecure") {
		val, err := fs.GetBool("trace-insecure")
		if err != nil {
			return err
		}
		cfg.Tracing.Insecure = val
	}
	return nil
}
