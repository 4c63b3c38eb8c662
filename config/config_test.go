package config

import (
	"errors"
	"oars-console/registry"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Timeout != 3*time.Second {
		t.Fatalf("expect 3s default timeout, got %v", cfg.Timeout)
	}
	if cfg.Cookie.Name != "API_TOKEN" {
		t.Fatalf("expect API_TOKEN, got %s", cfg.Cookie.Name)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must be valid: %v", err)
	}

	// 没有 base URL 也没有 etcd，无法连接网关
	var cfgErr *Error
	if _, err := cfg.ResolveBaseURL(nil, ""); !errors.As(err, &cfgErr) || cfgErr.Field != "base_url" {
		t.Fatalf("expect base_url error, got %v", err)
	}
}

func TestPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.yaml")
	data := []byte(`
base_url: http://file.local
timeout: 5s
cookie:
  name: FILE_TOKEN
gateway:
  balancer: weighted
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	if err := cfg.LoadFile(path); err != nil {
		t.Fatal(err)
	}
	if err := cfg.ApplyEnv(env(map[string]string{
		EnvBaseURL:       "http://env.local",
		EnvTimeout:       "1500",
		EnvEtcdEndpoints: "10.0.0.1:2379, 10.0.0.2:2379",
	})); err != nil {
		t.Fatal(err)
	}

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(flags)
	if err := flags.Parse([]string{"--timeout", "2s"}); err != nil {
		t.Fatal(err)
	}
	if err := cfg.ApplyFlags(flags); err != nil {
		t.Fatal(err)
	}

	if cfg.BaseURL != "http://env.local" {
		t.Errorf("env must override file, got %s", cfg.BaseURL)
	}
	if cfg.Timeout != 2*time.Second {
		t.Errorf("flag must override env, got %v", cfg.Timeout)
	}
	if cfg.Cookie.Name != "FILE_TOKEN" {
		t.Errorf("unset flag must not override file, got %s", cfg.Cookie.Name)
	}
	if cfg.Gateway.Balancer != "weighted" {
		t.Errorf("expect weighted, got %s", cfg.Gateway.Balancer)
	}
	if diff := cmp.Diff([]string{"10.0.0.1:2379", "10.0.0.2:2379"}, cfg.Gateway.Etcd); diff != "" {
		t.Errorf("etcd endpoints mismatch (-want +got):\n%s", diff)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestLoadFileMissing(t *testing.T) {
	cfg := Default()
	var cfgErr *Error
	if err := cfg.LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); !errors.As(err, &cfgErr) {
		t.Fatalf("expect config error, got %v", err)
	}
}

func TestParseTimeout(t *testing.T) {
	cases := map[string]time.Duration{
		"3000":  3 * time.Second,
		"250ms": 250 * time.Millisecond,
		"1m":    time.Minute,
	}
	for in, want := range cases {
		got, err := ParseTimeout(in)
		if err != nil || got != want {
			t.Errorf("ParseTimeout(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseTimeout("soon"); err == nil {
		t.Error("expect error")
	}

	cfg := Default()
	if err := cfg.ApplyEnv(env(map[string]string{EnvTimeout: "soon"})); err == nil {
		t.Fatal("expect invalid OARS_TIMEOUT to fail")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(*Config)
		field string
	}{
		{"bad scheme", func(c *Config) { c.BaseURL = "ftp://x" }, "base_url"},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, "timeout"},
		{"bad cookie", func(c *Config) { c.Cookie.Name = "a;b" }, "cookie.name"},
		{"bad balancer", func(c *Config) { c.Gateway.Balancer = "random" }, "gateway.balancer"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"etcd without service", func(c *Config) {
			c.BaseURL = ""
			c.Gateway.Etcd = []string{"127.0.0.1:2379"}
			c.Gateway.Service = ""
		}, "gateway.service"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.BaseURL = "http://gateway.local"
			tc.edit(&cfg)
			var cfgErr *Error
			if err := cfg.Validate(); !errors.As(err, &cfgErr) || cfgErr.Field != tc.field {
				t.Fatalf("expect %s error, got %v", tc.field, err)
			}
		})
	}
}

type staticRegistry struct {
	instances []registry.ServiceInstance
}

func (r *staticRegistry) Register(string, registry.ServiceInstance, int64) error {
	return nil
}

func (r *staticRegistry) Deregister(string, string) error {
	return nil
}

func (r *staticRegistry) Discover(string) ([]registry.ServiceInstance, error) {
	return r.instances, nil
}

func (r *staticRegistry) Watch(string) <-chan []registry.ServiceInstance {
	return nil
}

func TestResolveBaseURL(t *testing.T) {
	cfg := Default()
	cfg.BaseURL = "http://static.local"
	got, err := cfg.ResolveBaseURL(nil, "")
	if err != nil || got != "http://static.local" {
		t.Fatalf("static base URL must win, got %q %v", got, err)
	}

	cfg.BaseURL = ""
	cfg.Gateway.Etcd = []string{"127.0.0.1:2379"}
	cfg.Gateway.Balancer = "hash"
	reg := &staticRegistry{instances: []registry.ServiceInstance{
		{Addr: "http://10.0.0.1:8801", Weight: 1},
		{Addr: "http://10.0.0.2:8801", Weight: 1},
	}}
	first, err := cfg.ResolveBaseURL(reg, "console-host")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, _ := cfg.ResolveBaseURL(reg, "console-host")
		if again != first {
			t.Fatalf("hash pick must be stable: %s vs %s", first, again)
		}
	}

	var cfgErr *Error
	if _, err := cfg.ResolveBaseURL(&staticRegistry{}, "console-host"); !errors.As(err, &cfgErr) {
		t.Fatalf("expect config error without instances, got %v", err)
	}
}

func TestYAMLTimeoutMilliseconds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.yaml")
	if err := os.WriteFile(path, []byte("base_url: http://file.local\ntimeout: 3000\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	if err := cfg.LoadFile(path); err != nil {
		t.Fatal(err)
	}
	if cfg.Timeout != 3*time.Second {
		t.Fatalf("bare number must be milliseconds, got %v", cfg.Timeout)
	}
	if cfg.BaseURL != "http://file.local" || cfg.Cookie.Name != "API_TOKEN" {
		t.Fatalf("other fields must still load over defaults: %+v", cfg)
	}

	if err := os.WriteFile(path, []byte("timeout: soon\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg = Default()
	if err := cfg.LoadFile(path); err == nil {
		t.Fatal("expect invalid timeout to fail")
	}
}
