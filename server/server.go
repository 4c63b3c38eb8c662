// Package server is a stand-in for the backend gateway, used for local
// console development and in tests.
//
// Request processing pipeline:
//
//	POST /api/gateway → decode envelope → Middleware Chain → businessHandler
//	  → parse "system.admin.<resource>.<action>" → reflect.Call → encode envelope (HTTP 200)
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"oars-console/codec"
	"oars-console/message"
	"oars-console/middleware"
	"oars-console/protocol"
	"oars-console/registry"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

// Only methods under this namespace/service pair are dispatched.
const (
	DefaultNamespace = "system"
	DefaultService   = "admin"
)

// Server is the gateway stub.
type Server struct {
	mu            sync.RWMutex
	serviceMap    map[string]*service     // Registered resources: "namespace" → *service
	httpServer    *http.Server            // nil until Serve
	wg            sync.WaitGroup          // Tracks in-flight requests for graceful shutdown
	shutdown      atomic.Bool             // Set to true during shutdown to suppress Serve errors
	middlewares   []middleware.Middleware // Registered middlewares (applied in order)
	registry      registry.Registry       // Gateway registry (etcd), nil if not using discovery
	serviceName   string                  // Name announced in the registry
	advertiseAddr string                  // Base URL announced in the registry
	codec         codec.Codec
}

// NewServer creates a new gateway stub with no resources.
func NewServer() *Server {
	return &Server{
		serviceMap: make(map[string]*service),
		codec:      codec.GetCodec(codec.CodecTypeJSON),
	}
}

// Register exposes rcvr as the resource named after its type ("Namespace"
// → "namespace").
func (svr *Server) Register(rcvr any) error {
	return svr.RegisterName("", rcvr)
}

// RegisterName exposes rcvr under an explicit resource name.
func (svr *Server) RegisterName(name string, rcvr any) error {
	svc, err := NewService(name, rcvr)
	if err != nil {
		return err
	}
	svr.mu.Lock()
	defer svr.mu.Unlock()
	svr.serviceMap[svc.name] = svc
	return nil
}

// Use registers a middleware. Middlewares are applied in the order they are added.
func (svr *Server) Use(mw middleware.Middleware) {
	svr.mu.Lock()
	defer svr.mu.Unlock()
	svr.middlewares = append(svr.middlewares, mw)
}

// Handler returns the HTTP handler serving the gateway and health routes.
// The middleware chain is built here once, not per request.
func (svr *Server) Handler() http.Handler {
	svr.mu.RLock()
	handler := middleware.Chain(svr.middlewares...)(svr.businessHandler)
	svr.mu.RUnlock()

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+protocol.HealthPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(protocol.HeaderContentType, "application/json")
		json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	})
	mux.HandleFunc("POST "+protocol.GatewayPath, func(w http.ResponseWriter, r *http.Request) {
		svr.wg.Add(1)
		defer svr.wg.Done()

		req, err := protocol.ReadRequest(r, svr.codec)
		if err != nil {
			svr.write(w, failure(message.CodeInvalidParameter, err))
			return
		}

		resp, err := handler(r.Context(), req)
		if err != nil {
			resp = failureFor(err)
		}
		svr.write(w, resp)
	})
	return mux
}

func (svr *Server) write(w http.ResponseWriter, resp *message.Response) {
	if err := protocol.WriteResponse(w, resp, svr.codec); err != nil {
		log.WithError(err).Warn("failed to write gateway reply")
	}
}

// Serve listens on address, optionally announces advertiseAddr (a base URL
// such as "http://10.0.0.3:8801") under serviceName in reg, and serves until
// Shutdown.
func (svr *Server) Serve(address string, serviceName string, advertiseAddr string, reg registry.Registry) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	return svr.ServeListener(listener, serviceName, advertiseAddr, reg)
}

// ServeListener is Serve on an existing listener.
func (svr *Server) ServeListener(listener net.Listener, serviceName string, advertiseAddr string, reg registry.Registry) error {
	httpServer := &http.Server{Handler: svr.Handler()}

	svr.mu.Lock()
	svr.httpServer = httpServer
	svr.serviceName = serviceName
	svr.advertiseAddr = advertiseAddr
	svr.registry = reg
	svr.mu.Unlock()

	if svr.shutdown.Load() {
		listener.Close()
		return nil
	}

	if reg != nil {
		// TTL = 10 seconds, KeepAlive renews automatically
		if err := reg.Register(serviceName, registry.ServiceInstance{Addr: advertiseAddr, Weight: 1}, 10); err != nil {
			listener.Close()
			return fmt.Errorf("register gateway: %w", err)
		}
	}

	log.Infof("gateway stub listening on %s", listener.Addr())
	err := httpServer.Serve(listener)
	if svr.shutdown.Load() && errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown performs graceful shutdown:
//  1. Set the shutdown flag so Serve returns nil
//  2. Deregister from etcd so consoles stop picking this gateway
//  3. Stop accepting requests and wait for in-flight ones (with timeout)
func (svr *Server) Shutdown(timeout time.Duration) error {
	svr.shutdown.Store(true)

	svr.mu.RLock()
	reg, name, addr, httpServer := svr.registry, svr.serviceName, svr.advertiseAddr, svr.httpServer
	svr.mu.RUnlock()

	if reg != nil {
		if err := reg.Deregister(name, addr); err != nil {
			log.WithError(err).Warn("failed to deregister gateway")
		}
	}

	if httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("timeout waiting for ongoing requests to finish: %w", err)
	}

	done := make(chan struct{})
	go func() {
		svr.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for ongoing requests to finish")
	}
}

// businessHandler dispatches one envelope to a registered resource.
//
// Flow: parse method → find resource → find action → reflect.New(args) →
// json round-trip args → reflect.Call → envelope
func (svr *Server) businessHandler(ctx context.Context, req *message.Request) (*message.Response, error) {
	ns, svcName, resource, action := message.ParseMethod(req.Method)
	if ns == "" || svcName == "" || resource == "" {
		return failure(message.CodeInvalidParameter, fmt.Errorf("invalid method %q", req.Method)), nil
	}
	if ns != DefaultNamespace || svcName != DefaultService {
		return failure(message.CodeMethodNotFound, fmt.Errorf("unknown service %s.%s", ns, svcName)), nil
	}

	svr.mu.RLock()
	svc, ok := svr.serviceMap[resource]
	svr.mu.RUnlock()
	if !ok {
		return failure(message.CodeResourceNotFound, fmt.Errorf("unknown resource %q", resource)), nil
	}
	method, ok := svc.method[action]
	if !ok {
		return failure(message.CodeMethodNotFound, fmt.Errorf("unknown action %q", action)), nil
	}

	argv := reflect.New(method.ArgType)
	replyv := reflect.New(method.ReplyType)

	// Args arrive as generic JSON values; round-trip them into the typed
	// argument.
	if req.Args != nil {
		raw, err := json.Marshal(req.Args)
		if err != nil {
			return failure(message.CodeInvalidParameter, err), nil
		}
		if err := json.Unmarshal(raw, argv.Interface()); err != nil {
			return failure(message.CodeInvalidParameter, err), nil
		}
	}

	if err := svc.Call(ctx, method, argv, replyv); err != nil {
		return failureFor(err), nil
	}
	return message.Reply(replyv.Interface())
}
