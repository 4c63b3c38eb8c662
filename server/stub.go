package server

import (
	"context"
	"fmt"
	"oars-console/admin"
	"regexp"
	"sort"
	"sync"
	"time"
)

// Resource names must start with a letter and end with a letter or digit;
// dashes are allowed in between.
var nameRegexp = regexp.MustCompile(`^[a-zA-Z]([a-zA-Z0-9\-]+)*[a-zA-Z0-9]$`)

func validName(field, name string) error {
	if !nameRegexp.MatchString(name) {
		return InvalidParameter(fmt.Errorf("invalid %s %q", field, name))
	}
	return nil
}

// memStore keeps one resource kind in memory, keyed by "namespace/name".
type memStore[T any] struct {
	mu    sync.RWMutex
	items map[string]T
}

func newMemStore[T any]() *memStore[T] {
	return &memStore[T]{items: make(map[string]T)}
}

func storeKey(namespace, name string) string {
	return namespace + "/" + name
}

func (s *memStore[T]) get(key string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

func (s *memStore[T]) put(key string, v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = v
}

func (s *memStore[T]) delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[key]; !ok {
		return false
	}
	delete(s.items, key)
	return true
}

// list returns the items accepted by keep, sorted by key.
func (s *memStore[T]) list(keep func(T) bool) []T {
	s.mu.RLock()
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	s.mu.RUnlock()
	sort.Strings(keys)

	out := make([]T, 0, len(keys))
	for _, k := range keys {
		v, ok := s.get(k)
		if ok && (keep == nil || keep(v)) {
			out = append(out, v)
		}
	}
	return out
}

// Stub holds the in-memory resources served by the gateway stub.
type Stub struct {
	now        func() time.Time
	namespaces *memStore[admin.Namespace]
	services   *memStore[admin.Service]
	endpoints  *memStore[admin.Endpoint]
}

// NewStub returns a stub seeded with the "system" and "default" namespaces.
func NewStub() *Stub {
	s := &Stub{
		now:        time.Now,
		namespaces: newMemStore[admin.Namespace](),
		services:   newMemStore[admin.Service](),
		endpoints:  newMemStore[admin.Endpoint](),
	}
	created := s.now().Unix()
	for _, name := range []string{"default", "system"} {
		s.namespaces.put(storeKey("", name), admin.Namespace{Version: "v1", Name: name, Created: created, Updated: created})
	}
	return s
}

// RegisterStub registers the namespace, service and endpoint resources of
// stub on svr.
func RegisterStub(svr *Server, stub *Stub) error {
	for name, rcvr := range map[string]any{
		admin.KindNamespace: &NamespaceResource{stub: stub},
		admin.KindService:   &ServiceResource{stub: stub},
		admin.KindEndpoint:  &EndpointResource{stub: stub},
	} {
		if err := svr.RegisterName(name, rcvr); err != nil {
			return err
		}
	}
	return nil
}

// Empty is the reply of actions that return no data.
type Empty struct{}

type NamespaceResource struct {
	stub *Stub
}

func (r *NamespaceResource) Get(ctx context.Context, args *admin.Namespace, reply *[]admin.Namespace) error {
	*reply = r.stub.namespaces.list(func(ns admin.Namespace) bool {
		return args.Name == "" || ns.Name == args.Name
	})
	return nil
}

func (r *NamespaceResource) Put(ctx context.Context, args *admin.Namespace, reply *admin.Namespace) error {
	if err := validName("namespace", args.Name); err != nil {
		return err
	}
	ns := *args
	ns.Updated = r.stub.now().Unix()
	if old, ok := r.stub.namespaces.get(storeKey("", ns.Name)); ok {
		ns.Created = old.Created
	} else {
		ns.Created = ns.Updated
	}
	r.stub.namespaces.put(storeKey("", ns.Name), ns)
	*reply = ns
	return nil
}

func (r *NamespaceResource) Delete(ctx context.Context, args *admin.Namespace, reply *Empty) error {
	if !r.stub.namespaces.delete(storeKey("", args.Name)) {
		return ResourceNotFound(fmt.Errorf("namespace %q not found", args.Name))
	}
	return nil
}

type ServiceResource struct {
	stub *Stub
}

func (r *ServiceResource) Get(ctx context.Context, args *admin.Service, reply *[]admin.Service) error {
	*reply = r.stub.services.list(func(svc admin.Service) bool {
		return (args.Namespace == "" || svc.Namespace == args.Namespace) &&
			(args.Name == "" || svc.Name == args.Name)
	})
	return nil
}

func (r *ServiceResource) Put(ctx context.Context, args *admin.Service, reply *admin.Service) error {
	if err := validName("service", args.Name); err != nil {
		return err
	}
	if _, ok := r.stub.namespaces.get(storeKey("", args.Namespace)); !ok {
		return ResourceNotFound(fmt.Errorf("namespace %q not found", args.Namespace))
	}
	svc := *args
	key := storeKey(svc.Namespace, svc.Name)
	svc.Updated = r.stub.now().Unix()
	if old, ok := r.stub.services.get(key); ok {
		svc.Created = old.Created
	} else {
		svc.Created = svc.Updated
	}
	r.stub.services.put(key, svc)
	*reply = svc
	return nil
}

func (r *ServiceResource) Delete(ctx context.Context, args *admin.Service, reply *Empty) error {
	if !r.stub.services.delete(storeKey(args.Namespace, args.Name)) {
		return ResourceNotFound(fmt.Errorf("service %s/%s not found", args.Namespace, args.Name))
	}
	return nil
}

type EndpointResource struct {
	stub *Stub
}

func (r *EndpointResource) Get(ctx context.Context, args *admin.Endpoint, reply *[]admin.Endpoint) error {
	*reply = r.stub.endpoints.list(func(ep admin.Endpoint) bool {
		return (args.Namespace == "" || ep.Namespace == args.Namespace) &&
			(args.Service == "" || ep.Service == args.Service) &&
			(args.Name == "" || ep.Name == args.Name)
	})
	return nil
}

func (r *EndpointResource) Put(ctx context.Context, args *admin.Endpoint, reply *admin.Endpoint) error {
	if err := validName("endpoint", args.Name); err != nil {
		return err
	}
	if _, ok := r.stub.namespaces.get(storeKey("", args.Namespace)); !ok {
		return ResourceNotFound(fmt.Errorf("namespace %q not found", args.Namespace))
	}
	ep := *args
	key := storeKey(ep.Namespace, ep.Name)
	ep.Updated = r.stub.now().Unix()
	if old, ok := r.stub.endpoints.get(key); ok {
		ep.Created = old.Created
		if ep.Status == nil {
			ep.Status = old.Status
		}
	} else {
		ep.Created = ep.Updated
	}
	if ep.Status == nil {
		ep.Status = &admin.EndpointStatus{State: "running"}
	}
	r.stub.endpoints.put(key, ep)
	*reply = ep
	return nil
}

func (r *EndpointResource) Delete(ctx context.Context, args *admin.Endpoint, reply *Empty) error {
	if !r.stub.endpoints.delete(storeKey(args.Namespace, args.Name)) {
		return ResourceNotFound(fmt.Errorf("endpoint %s/%s not found", args.Namespace, args.Name))
	}
	return nil
}

func (r *EndpointResource) Restart(ctx context.Context, args *admin.Endpoint, reply *admin.Endpoint) error {
	return r.setState(args, "running", reply)
}

func (r *EndpointResource) Stop(ctx context.Context, args *admin.Endpoint, reply *admin.Endpoint) error {
	return r.setState(args, "stopped", reply)
}

func (r *EndpointResource) setState(args *admin.Endpoint, state string, reply *admin.Endpoint) error {
	key := storeKey(args.Namespace, args.Name)
	ep, ok := r.stub.endpoints.get(key)
	if !ok {
		return ResourceNotFound(fmt.Errorf("endpoint %s/%s not found", args.Namespace, args.Name))
	}
	status := admin.EndpointStatus{}
	if ep.Status != nil {
		status = *ep.Status
	}
	status.State = state
	ep.Status = &status
	ep.Updated = r.stub.now().Unix()
	r.stub.endpoints.put(key, ep)
	*reply = ep
	return nil
}
