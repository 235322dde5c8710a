// Package config layers udigen settings: built-in defaults, then an
// optional YAML file, then UDIGEN_* environment variables, then command
// line flags.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Templates       string `yaml:"templates"`
	Schemas         string `yaml:"schemas"`
	Output          string `yaml:"output"`
	Store           string `yaml:"store"`
	Workers         int    `yaml:"workers"`
	Limit           int    `yaml:"limit"`
	ContinueOnError bool   `yaml:"continueOnError"`
	Verbose         bool   `yaml:"verbose"`
}

// Flag names shared by the CLI and ApplyFlags.
const (
	FlagTemplates       = "templates"
	FlagSchemas         = "schemas"
	FlagOutput          = "out"
	FlagStore           = "store"
	FlagWorkers         = "workers"
	FlagLimit           = "limit"
	FlagContinueOnError = "continue-on-error"
	FlagVerbose         = "verbose"
)

const envPrefix = "UDIGEN_"

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Output:  "-",
		Workers: runtime.NumCPU(),
	}
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error; an empty path skips the file entirely.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	getenv := func(k string) (string, bool) {
		v, ok := lookup(envPrefix + k)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := getenv("TEMPLATES"); ok {
		c.Templates = v
	}
	if v, ok := getenv("SCHEMAS"); ok {
		c.Schemas = v
	}
	if v, ok := getenv("OUTPUT"); ok {
		c.Output = v
	}
	if v, ok := getenv("STORE"); ok {
		c.Store = v
	}
	for key, dst := range map[string]*int{"WORKERS": &c.Workers, "LIMIT": &c.Limit} {
		if v, ok := getenv(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s%s %q: %w", envPrefix, key, v, err)
			}
			*dst = n
		}
	}
	for key, dst := range map[string]*bool{"CONTINUE_ON_ERROR": &c.ContinueOnError, "VERBOSE": &c.Verbose} {
		if v, ok := getenv(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid %s%s %q: %w", envPrefix, key, v, err)
			}
			*dst = b
		}
	}
	return nil
}

// ApplyFlags overrides settings with every flag of fs that was set on the
// command line. Flags that are not defined on fs are ignored.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	var err error
	set := func(name string, apply func() error) {
		if err != nil {
			return
		}
		if f := fs.Lookup(name); f != nil && f.Changed {
			err = apply()
		}
	}

	set(FlagTemplates, func() (e error) { c.Templates, e = fs.GetString(FlagTemplates); return })
	set(FlagSchemas, func() (e error) { c.Schemas, e = fs.GetString(FlagSchemas); return })
	set(FlagOutput, func() (e error) { c.Output, e = fs.GetString(FlagOutput); return })
	set(FlagStore, func() (e error) { c.Store, e = fs.GetString(FlagStore); return })
	set(FlagWorkers, func() (e error) { c.Workers, e = fs.GetInt(FlagWorkers); return })
	set(FlagLimit, func() (e error) { c.Limit, e = fs.GetInt(FlagLimit); return })
	set(FlagContinueOnError, func() (e error) { c.ContinueOnError, e = fs.GetBool(FlagContinueOnError); return })
	set(FlagVerbose, func() (e error) { c.Verbose, e = fs.GetBool(FlagVerbose); return })
	return err
}

// Validate checks the settings an expansion needs.
func (c Config) Validate() error {
	if c.Templates == "" {
		return fmt.Errorf("no template catalogue given (--%s or %sTEMPLATES)", FlagTemplates, envPrefix)
	}
	if c.Schemas == "" {
		return fmt.Errorf("no schema catalogue given (--%s or %sSCHEMAS)", FlagSchemas, envPrefix)
	}
	if c.Limit < 0 {
		return fmt.Errorf("limit must not be negative, got %d", c.Limit)
	}
	return nil
}
