package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"oars-console/admin"
	"oars-console/nav"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/pflag"
)

func newFlagSet(name string) *pflag.FlagSet {
	return pflag.NewFlagSet(name, pflag.ContinueOnError)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(a *app, v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runCall(a *app, args []string) error {
	flags := newFlagSet("call")
	version := flags.String("version", admin.Version, "API version sent with the call")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() < 1 {
		return errors.New("usage: call <method> [args-json]")
	}

	var callArgs any
	if flags.NArg() > 1 {
		if err := json.Unmarshal([]byte(flags.Arg(1)), &callArgs); err != nil {
			return fmt.Errorf("args must be JSON: %w", err)
		}
	}

	c, err := a.gatewayClient()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	resp, err := c.Call(ctx, flags.Arg(0), callArgs, *version)
	if err != nil {
		return err
	}
	var data any
	if err := resp.Decode(&data); err != nil {
		return err
	}
	return printJSON(a, data)
}

func runLogin(a *app, args []string) error {
	flags := newFlagSet("login")
	days := flags.Int("days", 1, "days until the token expires, 0 for this session only")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return errors.New("usage: login <token>")
	}

	jar, err := a.cookieJar()
	if err != nil {
		return err
	}
	if err := jar.Set(a.cfg.Cookie.Name, flags.Arg(0), *days); err != nil {
		return err
	}
	a.hub.Success("logged in")
	return nil
}

func runLogout(a *app, args []string) error {
	jar, err := a.cookieJar()
	if err != nil {
		return err
	}
	if err := jar.Delete(a.cfg.Cookie.Name); err != nil {
		return err
	}
	a.hub.Success("logged out")
	return nil
}

func runToken(a *app, args []string) error {
	jar, err := a.cookieJar()
	if err != nil {
		return err
	}
	token, ok := jar.Get(a.cfg.Cookie.Name)
	if !ok {
		return errors.New("not logged in")
	}
	fmt.Fprintln(a.out, token)
	return nil
}

func runRoutes(a *app, args []string) error {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tNAME\tTITLE")
	for _, route := range nav.NewRouter(nav.DefaultRoutes()).Routes() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", route.Path, route.Name, route.Meta.Title)
	}
	return w.Flush()
}

func runNavigate(a *app, args []string) error {
	flags := newFlagSet("navigate")
	setTitle := flags.Bool("set-title", false, "mirror the title to the terminal window")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() == 0 {
		return errors.New("usage: navigate <path>...")
	}

	window := nav.NewWindow(a.state.WebName(), nil)
	if *setTitle {
		window.Out = os.Stderr
	}
	router := nav.NewRouter(nav.DefaultRoutes())
	router.BeforeEach(nav.TitleGuard(window))

	for _, path := range flags.Args() {
		route, err := router.Push(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s\t%s\n", route.Path, window.Title())
	}
	return nil
}

func runNamespaces(a *app, args []string) error {
	adm, err := a.admin()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	if err := adm.RefreshNamespaces(ctx, a.state); err != nil {
		return err
	}
	current := a.state.Current()
	for _, name := range a.state.Namespaces() {
		marker := " "
		if name == current {
			marker = "*"
		}
		fmt.Fprintf(a.out, "%s %s\n", marker, name)
	}
	return nil
}

func runOverview(a *app, args []string) error {
	adm, err := a.admin()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	namespace := ""
	if len(args) > 0 {
		namespace = args[0]
	} else {
		if err := adm.RefreshNamespaces(ctx, a.state); err != nil {
			return err
		}
		namespace = a.state.Current()
	}

	o, err := adm.Overview(ctx, namespace)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "namespace %s (%d namespaces total)\n\n", namespace, len(o.Namespaces))
	fmt.Fprintln(w, "SERVICE\tKIND\tENDPOINTS")
	for _, svc := range o.Services {
		names := make([]string, 0, len(svc.Endpoints))
		for _, ep := range svc.Endpoints {
			names = append(names, ep.Name)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", svc.Name, svc.Kind, strings.Join(names, ","))
	}
	fmt.Fprintln(w, "\nENDPOINT\tSERVICE\tSTATE")
	for _, ep := range o.Endpoints {
		stateName := ""
		if ep.Status != nil {
			stateName = ep.Status.State
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", ep.Name, ep.Service, stateName)
	}
	return w.Flush()
}

func runGateways(a *app, args []string) error {
	flags := newFlagSet("gateways")
	watch := flags.Bool("watch", false, "keep printing the list when it changes")
	if err := flags.Parse(args); err != nil {
		return err
	}

	reg, err := a.registry()
	if err != nil {
		return err
	}
	defer reg.Close()

	instances, err := reg.Discover(a.cfg.Gateway.Service)
	if err != nil {
		return err
	}
	if err := printJSON(a, instances); err != nil {
		return err
	}
	if !*watch {
		return nil
	}

	ctx, cancel := signalContext()
	defer cancel()
	updates := reg.Watch(a.cfg.Gateway.Service)
	for {
		select {
		case <-ctx.Done():
			return nil
		case instances, ok := <-updates:
			if !ok {
				return nil
			}
			if err := printJSON(a, instances); err != nil {
				return err
			}
		}
	}
}
