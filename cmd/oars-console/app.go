package main

import (
	"fmt"
	"io"
	"oars-console/admin"
	"oars-console/client"
	"oars-console/config"
	"oars-console/cookie"
	"oars-console/notify"
	"oars-console/registry"
	"oars-console/state"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// app holds what the commands share. Collaborators are built lazily so that
// commands like "routes" never touch the cookie store or the network.
type app struct {
	cfg    *config.Config
	log    *logrus.Logger
	out    io.Writer
	hub    *notify.Hub
	state  *state.Context
	closer []func() error

	jar    cookie.Jar
	client *client.Client

	printed sync.WaitGroup
}

func newApp(cfg *config.Config) *app {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(cfg.Level())

	a := &app{
		cfg:   cfg,
		log:   log,
		out:   os.Stdout,
		hub:   notify.NewHub(64),
		state: state.New(),
	}

	ch, cancel := a.hub.Subscribe()
	a.printed.Add(1)
	go func() {
		defer a.printed.Done()
		for n := range ch {
			fmt.Fprintf(os.Stderr, "[%s] %s\n", n.Level, n.Message)
		}
	}()
	a.closer = append(a.closer, func() error {
		cancel()
		a.printed.Wait()
		return nil
	})
	return a
}

// Close releases everything in reverse order of acquisition.
func (a *app) Close() error {
	var first error
	for i := len(a.closer) - 1; i >= 0; i-- {
		if err := a.closer[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// notifier sends notifications to the terminal, and also to the log when
// debugging.
func (a *app) notifier() notify.Notifier {
	if a.log.IsLevelEnabled(logrus.DebugLevel) {
		return notify.Multi(a.hub, notify.NewLogNotifier(a.log.WithField("component", "notify")))
	}
	return a.hub
}

// cookieJar opens the persistent jar, or an in-memory one when no cookie
// directory is configured.
func (a *app) cookieJar() (cookie.Jar, error) {
	if a.jar != nil {
		return a.jar, nil
	}
	if a.cfg.Cookie.Dir == "" {
		a.jar = cookie.NewMemoryJar()
		return a.jar, nil
	}
	jar, err := cookie.OpenLevelDBJar(a.cfg.Cookie.Dir)
	if err != nil {
		return nil, err
	}
	a.closer = append(a.closer, jar.Close)
	a.jar = jar
	return jar, nil
}

// registry connects to etcd. The caller closes it.
func (a *app) registry() (*registry.EtcdRegistry, error) {
	if len(a.cfg.Gateway.Etcd) == 0 {
		return nil, &config.Error{Field: "gateway.etcd", Reason: "no etcd endpoints configured"}
	}
	return registry.NewEtcdRegistry(a.cfg.Gateway.Etcd)
}

// gatewayClient resolves the gateway once and builds the shared client.
func (a *app) gatewayClient() (*client.Client, error) {
	if a.client != nil {
		return a.client, nil
	}

	var reg registry.Registry
	if a.cfg.BaseURL == "" && len(a.cfg.Gateway.Etcd) > 0 {
		etcdReg, err := a.registry()
		if err != nil {
			return nil, err
		}
		defer etcdReg.Close()
		reg = etcdReg
	}
	host, _ := os.Hostname()
	baseURL, err := a.cfg.ResolveBaseURL(reg, host)
	if err != nil {
		return nil, err
	}
	a.log.WithField("gateway", baseURL).Debug("gateway resolved")

	jar, err := a.cookieJar()
	if err != nil {
		return nil, err
	}
	c, err := client.New(client.Config{
		BaseURL:     baseURL,
		Timeout:     a.cfg.Timeout,
		TokenSource: cookie.TokenSource(jar, a.cfg.Cookie.Name),
		Notifier:    a.notifier(),
		Logger:      a.log,
	})
	if err != nil {
		return nil, err
	}
	a.client = c
	return c, nil
}

func (a *app) admin() (*admin.Admin, error) {
	c, err := a.gatewayClient()
	if err != nil {
		return nil, err
	}
	return admin.New(c), nil
}
