package main

import (
	"context"
	"net"
	"oars-console/middleware"
	"oars-console/registry"
	"oars-console/server"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

func runServe(a *app, args []string) error {
	flags := newFlagSet("serve")
	listen := flags.String("listen", ":8801", "address the stub gateway listens on")
	advertise := flags.String("advertise", "", "base URL announced in etcd (default http://127.0.0.1:<port>)")
	register := flags.Bool("register", false, "announce the gateway in etcd")
	rate := flags.Float64("rate", 0, "requests per second accepted, 0 for unlimited")
	burst := flags.Int("burst", 10, "rate limit burst")
	queue := flags.Bool("queue", false, "make requests over the rate wait instead of failing")
	if err := flags.Parse(args); err != nil {
		return err
	}

	svr := server.NewServer()
	svr.Use(middleware.LoggingMiddleware(a.log.WithField("component", "gateway")))
	switch {
	case *rate > 0 && *queue:
		svr.Use(middleware.ThrottleMiddleware(*rate, *burst))
	case *rate > 0:
		svr.Use(middleware.RateLimitMiddleware(*rate, *burst))
	}
	if err := server.RegisterStub(svr, server.NewStub()); err != nil {
		return err
	}

	var reg registry.Registry
	if *register {
		etcdReg, err := a.registry()
		if err != nil {
			return err
		}
		defer etcdReg.Close()
		reg = etcdReg
	}

	listener, err := net.Listen("tcp", *listen)
	if err != nil {
		return err
	}
	if *advertise == "" {
		*advertise = advertiseURL(listener.Addr())
	}

	ctx, cancel := signalContext()
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svr.ServeListener(listener, a.cfg.Gateway.Service, *advertise, reg)
	})
	g.Go(func() error {
		<-ctx.Done()
		a.log.Info("shutting down gateway stub")
		return svr.Shutdown(5 * time.Second)
	})
	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// advertiseURL turns a listener address into a loopback base URL when it is
// bound to all interfaces.
func advertiseURL(addr net.Addr) string {
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return "http://" + addr.String()
	}
	if ip := net.ParseIP(host); ip == nil || ip.IsUnspecified() {
		host = "127.0.0.1"
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return "http://" + host + ":" + port
}
