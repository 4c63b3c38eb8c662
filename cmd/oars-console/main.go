// oars-console is the command-line face of the admin console. It talks to
// the backend gateway through the same client, cookie store, notification
// sink and navigation guard the console is built on.
//
//	oars-console [global flags] <command> [args]
//
// Commands:
//
//	call <method> [args-json]   one raw gateway call, prints data
//	login <token>               store the auth token cookie
//	logout                      delete the auth token cookie
//	token                       print the stored auth token
//	routes                      list console routes
//	navigate <path>...          walk routes through the title guard
//	namespaces                  load namespaces and pick the current one
//	overview [namespace]        namespaces, services and endpoints at once
//	gateways [--watch]          list gateways registered in etcd
//	serve                       run the stub gateway
package main

import (
	"fmt"
	"oars-console/config"
	"os"

	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type command struct {
	name    string
	summary string
	run     func(a *app, args []string) error
}

var commands = []command{
	{"call", "one raw gateway call", runCall},
	{"login", "store the auth token cookie", runLogin},
	{"logout", "delete the auth token cookie", runLogout},
	{"token", "print the stored auth token", runToken},
	{"routes", "list console routes", runRoutes},
	{"navigate", "walk routes through the title guard", runNavigate},
	{"namespaces", "load namespaces", runNamespaces},
	{"overview", "namespace overview", runOverview},
	{"gateways", "list gateways registered in etcd", runGateways},
	{"serve", "run the stub gateway", runServe},
}

func run(args []string) error {
	flagSet := pflag.NewFlagSet("oars-console", pflag.ContinueOnError)
	flagSet.SetInterspersed(false)
	config.AddFlags(flagSet)
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help || flagSet.NArg() == 0 {
		printHelp(flagSet)
		return nil
	}

	path, _ := flagSet.GetString("config")
	cfg, err := config.Load(path, flagSet)
	if err != nil {
		return err
	}

	name := flagSet.Arg(0)
	for _, cmd := range commands {
		if cmd.name != name {
			continue
		}
		a := newApp(cfg)
		defer a.Close()
		return cmd.run(a, flagSet.Args()[1:])
	}
	return fmt.Errorf("unknown command %q", name)
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, "usage: oars-console [flags] <command> [args]\n\nCommands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(os.Stderr, "  %-12s %s\n", cmd.name, cmd.summary)
	}
	fmt.Fprintf(os.Stderr, "\nFlags:\n%s", flagSet.FlagUsages())
}
