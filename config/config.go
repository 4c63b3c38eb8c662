// Package config resolves the console configuration.
//
// Sources are applied in order, later ones winning:
//
//	defaults → YAML file → environment → command-line flags
//
// The result is validated once at start-up. Nothing reloads it afterwards.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"oars-console/cookie"
	"oars-console/loadbalance"
	"oars-console/registry"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTimeout        = 3 * time.Second
	DefaultGatewayService = "oars-gateway"
	DefaultBalancer       = "round-robin"
	DefaultLogLevel       = "info"
)

// Environment variables.
const (
	EnvBaseURL        = "BASE_API"
	EnvTimeout        = "OARS_TIMEOUT"
	EnvCookieName     = "OARS_COOKIE_NAME"
	EnvCookieDir      = "OARS_COOKIE_DIR"
	EnvEtcdEndpoints  = "OARS_ETCD_ENDPOINTS"
	EnvGatewayService = "OARS_GATEWAY_SERVICE"
	EnvBalancer       = "OARS_BALANCER"
	EnvLogLevel       = "OARS_LOG_LEVEL"
)

type CookieConfig struct {
	Name string `yaml:"name"`
	// Dir holds the persistent cookie database. Empty keeps cookies in
	// memory only.
	Dir string `yaml:"dir"`
}

// GatewayConfig enables discovery of the gateway through etcd. It is only
// consulted when no static base URL is set.
type GatewayConfig struct {
	Etcd     []string `yaml:"etcd"`
	Service  string   `yaml:"service"`
	Balancer string   `yaml:"balancer"`
}

type Config struct {
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
	LogLevel string        `yaml:"log_level"`
	Cookie   CookieConfig  `yaml:"cookie"`
	Gateway  GatewayConfig `yaml:"gateway"`
}

// UnmarshalYAML reads timeout the way OARS_TIMEOUT is read: a bare number
// is milliseconds.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	type plain Config
	if value.Kind != yaml.MappingNode {
		return value.Decode((*plain)(c))
	}

	// yaml.v3 rejects integers for durations, so timeout is taken out and
	// parsed on its own.
	rest := *value
	rest.Content = nil
	var timeout *yaml.Node
	for i := 0; i+1 < len(value.Content); i += 2 {
		if value.Content[i].Value == "timeout" {
			timeout = value.Content[i+1]
			continue
		}
		rest.Content = append(rest.Content, value.Content[i], value.Content[i+1])
	}
	if err := rest.Decode((*plain)(c)); err != nil {
		return err
	}
	if timeout != nil {
		d, err := ParseTimeout(timeout.Value)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		c.Timeout = d
	}
	return nil
}

// Error is a configuration problem found at start-up.
type Error struct {
	Field  string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := "config: " + e.Field + ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Timeout:  DefaultTimeout,
		LogLevel: DefaultLogLevel,
		Cookie: CookieConfig{
			Name: cookie.DefaultTokenName,
			Dir:  defaultCookieDir(),
		},
		Gateway: GatewayConfig{
			Service:  DefaultGatewayService,
			Balancer: DefaultBalancer,
		},
	}
}

func defaultCookieDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".oars-console"
	}
	return filepath.Join(dir, "oars-console", "cookies")
}

// Load resolves the configuration. path may be empty; a named file that does
// not exist is an error. flags may be nil; only flags set on the command
// line override earlier sources.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if flags != nil {
		if err := cfg.ApplyFlags(flags); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile overlays the YAML file at path onto c.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Error{Field: "file", Reason: path + " does not exist"}
		}
		return &Error{Field: "file", Reason: "read " + path, Err: err}
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return &Error{Field: "file", Reason: "parse " + path, Err: err}
	}
	return nil
}

// ApplyEnv overlays the environment variables visible through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvBaseURL); ok {
		c.BaseURL = v
	}
	if v, ok := get(EnvTimeout); ok {
		d, err := ParseTimeout(v)
		if err != nil {
			return &Error{Field: EnvTimeout, Reason: "invalid timeout", Err: err}
		}
		c.Timeout = d
	}
	if v, ok := get(EnvCookieName); ok {
		c.Cookie.Name = v
	}
	if v, ok := get(EnvCookieDir); ok {
		c.Cookie.Dir = v
	}
	if v, ok := get(EnvEtcdEndpoints); ok {
		c.Gateway.Etcd = splitList(v)
	}
	if v, ok := get(EnvGatewayService); ok {
		c.Gateway.Service = v
	}
	if v, ok := get(EnvBalancer); ok {
		c.Gateway.Balancer = v
	}
	if v, ok := get(EnvLogLevel); ok {
		c.LogLevel = v
	}
	return nil
}

// ParseTimeout accepts a Go duration ("3s") or a bare number of
// milliseconds ("3000").
func ParseTimeout(v string) (time.Duration, error) {
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(v)
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// AddFlags registers the configuration flags on flags.
func AddFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "path to a YAML configuration file")
	flags.String("base-api", "", "gateway base URL (overrides "+EnvBaseURL+")")
	flags.Duration("timeout", DefaultTimeout, "gateway request timeout")
	flags.String("cookie-name", cookie.DefaultTokenName, "name of the auth token cookie")
	flags.String("cookie-dir", "", "directory of the persistent cookie store")
	flags.StringSlice("etcd", nil, "etcd endpoints used to discover the gateway")
	flags.String("gateway-service", DefaultGatewayService, "gateway service name in etcd")
	flags.String("balancer", DefaultBalancer, "gateway pick strategy: round-robin, weighted or hash")
	flags.String("log-level", DefaultLogLevel, "log level")
}

// ApplyFlags overlays the flags that were set on the command line.
func (c *Config) ApplyFlags(flags *pflag.FlagSet) error {
	var err error
	set := func(name string, apply func() error) {
		if err != nil || flags.Lookup(name) == nil || !flags.Changed(name) {
			return
		}
		if e := apply(); e != nil {
			err = &Error{Field: "--" + name, Reason: "invalid value", Err: e}
		}
	}

	set("base-api", func() (e error) { c.BaseURL, e = flags.GetString("base-api"); return })
	set("timeout", func() (e error) { c.Timeout, e = flags.GetDuration("timeout"); return })
	set("cookie-name", func() (e error) { c.Cookie.Name, e = flags.GetString("cookie-name"); return })
	set("cookie-dir", func() (e error) { c.Cookie.Dir, e = flags.GetString("cookie-dir"); return })
	set("etcd", func() (e error) { c.Gateway.Etcd, e = flags.GetStringSlice("etcd"); return })
	set("gateway-service", func() (e error) { c.Gateway.Service, e = flags.GetString("gateway-service"); return })
	set("balancer", func() (e error) { c.Gateway.Balancer, e = flags.GetString("balancer"); return })
	set("log-level", func() (e error) { c.LogLevel, e = flags.GetString("log-level"); return })
	return err
}

// Validate checks c. Whether a gateway is reachable at all is checked by
// ResolveBaseURL, since serving the stub gateway needs neither.
func (c *Config) Validate() error {
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil {
			return &Error{Field: "base_url", Reason: "invalid URL", Err: err}
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return &Error{Field: "base_url", Reason: fmt.Sprintf("%q is not an http(s) URL", c.BaseURL)}
		}
	}
	if c.Timeout <= 0 {
		return &Error{Field: "timeout", Reason: "must be positive"}
	}
	if !cookie.ValidName(c.Cookie.Name) {
		return &Error{Field: "cookie.name", Reason: fmt.Sprintf("%q is not a valid cookie name", c.Cookie.Name)}
	}
	if len(c.Gateway.Etcd) > 0 && c.Gateway.Service == "" {
		return &Error{Field: "gateway.service", Reason: "required with etcd discovery"}
	}
	if _, err := loadbalance.New(c.Gateway.Balancer, ""); err != nil {
		return &Error{Field: "gateway.balancer", Reason: "unknown strategy", Err: err}
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return &Error{Field: "log_level", Reason: "unknown level", Err: err}
	}
	return nil
}

// Level returns the parsed log level; Validate has already checked it.
func (c *Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// ResolveBaseURL returns the gateway base URL. A static base URL wins;
// otherwise one instance is picked from reg with the configured balancer.
// key feeds the consistent hash strategy, usually the host name.
func (c *Config) ResolveBaseURL(reg registry.Registry, key string) (string, error) {
	if c.BaseURL != "" {
		return c.BaseURL, nil
	}
	if len(c.Gateway.Etcd) == 0 {
		return "", &Error{Field: "base_url", Reason: "either " + EnvBaseURL + " or gateway etcd endpoints must be set"}
	}
	if reg == nil {
		return "", &Error{Field: "gateway.etcd", Reason: "no registry to discover the gateway"}
	}

	instances, err := reg.Discover(c.Gateway.Service)
	if err != nil {
		return "", &Error{Field: "gateway.etcd", Reason: "discover " + c.Gateway.Service, Err: err}
	}
	if len(instances) == 0 {
		return "", &Error{Field: "gateway.etcd", Reason: "no instance of " + c.Gateway.Service}
	}

	balancer, err := loadbalance.New(c.Gateway.Balancer, key)
	if err != nil {
		return "", &Error{Field: "gateway.balancer", Reason: "unknown strategy", Err: err}
	}
	inst, err := balancer.Pick(instances)
	if err != nil {
		return "", &Error{Field: "gateway.balancer", Reason: "pick gateway", Err: err}
	}
	return inst.Addr, nil
}
