// Package admin is a typed view of the "system.admin.<resource>.<action>"
// method space served by the gateway.
package admin

import (
	"context"
	"oars-console/message"
	"oars-console/state"

	"golang.org/x/sync/errgroup"
)

// Version is the API version the console speaks.
const Version = "v1"

const (
	namespaceName = "system"
	serviceName   = "admin"
)

// Resource kinds.
const (
	KindNamespace       = "namespace"
	KindService         = "service"
	KindEndpoint        = "endpoint"
	KindIngressListener = "ingressListener"
	KindIngressRoute    = "ingressRoute"
	KindEvent           = "event"
	KindCert            = "cert"
	KindConfigMap       = "configmap"
	KindCron            = "cron"
	KindUtil            = "util"
)

// Caller is satisfied by *client.Client.
type Caller interface {
	CallInto(ctx context.Context, method string, args any, version any, reply any) error
}

type Admin struct {
	caller Caller
}

func New(caller Caller) *Admin {
	return &Admin{caller: caller}
}

// Resource addresses one resource kind.
func (a *Admin) Resource(kind string) *Resource {
	return &Resource{caller: a.caller, kind: kind}
}

type Resource struct {
	caller Caller
	kind   string
}

// Method returns the full method path for action.
func (r *Resource) Method(action string) string {
	return message.Method(namespaceName, serviceName, r.kind, action)
}

// Do calls an arbitrary action, e.g. "restart" on endpoints.
func (r *Resource) Do(ctx context.Context, action string, args any, reply any) error {
	return r.caller.CallInto(ctx, r.Method(action), args, Version, reply)
}

func (r *Resource) Get(ctx context.Context, args any, reply any) error {
	return r.Do(ctx, "get", args, reply)
}

func (r *Resource) Put(ctx context.Context, args any, reply any) error {
	return r.Do(ctx, "put", args, reply)
}

func (r *Resource) Delete(ctx context.Context, args any) error {
	return r.Do(ctx, "delete", args, nil)
}

func (a *Admin) Namespaces(ctx context.Context) ([]Namespace, error) {
	var list []Namespace
	if err := a.Resource(KindNamespace).Get(ctx, &Namespace{}, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (a *Admin) Services(ctx context.Context, namespace string) ([]Service, error) {
	var list []Service
	if err := a.Resource(KindService).Get(ctx, &Service{Namespace: namespace}, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (a *Admin) Endpoints(ctx context.Context, namespace string) ([]Endpoint, error) {
	var list []Endpoint
	if err := a.Resource(KindEndpoint).Get(ctx, &Endpoint{Namespace: namespace}, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// RefreshNamespaces loads the namespace list into sc. When nothing is
// selected yet, or the selection no longer exists, the first namespace
// becomes current.
func (a *Admin) RefreshNamespaces(ctx context.Context, sc *state.Context) error {
	list, err := a.Namespaces(ctx)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(list))
	for _, ns := range list {
		names = append(names, ns.Name)
	}
	sc.SetNamespaces(names)

	current := sc.Current()
	for _, name := range names {
		if name == current {
			return nil
		}
	}
	if len(names) > 0 {
		sc.SetCurrent(names[0])
	} else {
		sc.SetCurrent("")
	}
	return nil
}

// Overview loads namespaces, services and endpoints of namespace
// concurrently. Each load is its own gateway call; the first failure
// cancels the others.
func (a *Admin) Overview(ctx context.Context, namespace string) (*Overview, error) {
	var o Overview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := a.Namespaces(gctx)
		o.Namespaces = list
		return err
	})
	g.Go(func() error {
		list, err := a.Services(gctx, namespace)
		o.Services = list
		return err
	})
	g.Go(func() error {
		list, err := a.Endpoints(gctx, namespace)
		o.Endpoints = list
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &o, nil
}
