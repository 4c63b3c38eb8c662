package middleware

import (
	"context"
	"errors"
	"oars-console/message"
	"oars-console/protocol"
	"testing"
	"time"
)

// 模拟一个简单的 handler：直接返回成功响应
func echoHandler(ctx context.Context, req *message.Request) (*message.Response, error) {
	return message.Reply(req.Method)
}

// 模拟一个慢 handler：睡 200ms
func slowHandler(ctx context.Context, req *message.Request) (*message.Response, error) {
	time.Sleep(200 * time.Millisecond)
	return message.Reply(req.Method)
}

func newRequest() *message.Request {
	return message.NewRequest("system.admin.namespace.get", nil, "v1")
}

func TestLogging(t *testing.T) {
	handler := LoggingMiddleware(nil)(echoHandler)

	resp, err := handler(context.Background(), newRequest())
	if err != nil {
		t.Fatal(err)
	}
	if resp == nil || !resp.OK() {
		t.Fatal("expect success response")
	}

	failing := LoggingMiddleware(nil)(func(ctx context.Context, req *message.Request) (*message.Response, error) {
		return nil, nil
	})
	if _, err := failing(context.Background(), newRequest()); err != nil {
		t.Fatal(err)
	}
}

func TestTimeoutPass(t *testing.T) {
	// 超时 500ms，handler 很快，应该正常返回
	handler := TimeOutMiddleware(500 * time.Millisecond)(echoHandler)

	if _, err := handler(context.Background(), newRequest()); err != nil {
		t.Fatalf("expect no error, got '%v'", err)
	}
}

func TestTimeoutExceeded(t *testing.T) {
	// 超时 50ms，handler 需要 200ms，应该超时
	handler := TimeOutMiddleware(50 * time.Millisecond)(slowHandler)

	_, err := handler(context.Background(), newRequest())
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expect timeout error, got '%v'", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expect deadline exceeded in chain, got '%v'", err)
	}
}

func TestRateLimit(t *testing.T) {
	// rate=1 per second, burst=2 → 前 2 个立刻放行，第 3 个被拒
	handler := RateLimitMiddleware(1, 2)(echoHandler)

	for i := 0; i < 2; i++ {
		if _, err := handler(context.Background(), newRequest()); err != nil {
			t.Fatalf("request %d should pass, got error: %v", i, err)
		}
	}

	if _, err := handler(context.Background(), newRequest()); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("request 3 should be rate limited, got: '%v'", err)
	}
}

func TestThrottle(t *testing.T) {
	// burst=1，第二个请求需要等待；context 先取消则返回错误
	handler := ThrottleMiddleware(0.1, 1)(echoHandler)

	if _, err := handler(context.Background(), newRequest()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := handler(ctx, newRequest()); err == nil {
		t.Fatal("expect throttled request to fail when context expires")
	}
}

func TestToken(t *testing.T) {
	token := ""
	var seen []string
	capture := func(ctx context.Context, req *message.Request) (*message.Response, error) {
		seen = append(seen, req.Header.Get(protocol.HeaderToken))
		if token == "" && len(req.Header.Values(protocol.HeaderToken)) > 0 {
			t.Error("token header must be absent without a token")
		}
		return message.Reply(nil)
	}
	handler := TokenMiddleware(func() string { return token })(capture)

	handler(context.Background(), newRequest())
	token = "abc"
	handler(context.Background(), &message.Request{Method: "a.b.c.d"})

	if len(seen) != 2 || seen[0] != "" || seen[1] != "abc" {
		t.Fatalf("unexpected tokens %q", seen)
	}
}

func TestChain(t *testing.T) {
	// 用 Chain 组合 Token + Logging + Timeout，验证请求能正常穿过
	var order []string
	mark := func(name string) Middleware {
		return func(next HandlerFunc) HandlerFunc {
			return func(ctx context.Context, req *message.Request) (*message.Response, error) {
				order = append(order, name)
				return next(ctx, req)
			}
		}
	}
	chained := Chain(mark("a"), LoggingMiddleware(nil), TimeOutMiddleware(500*time.Millisecond), mark("b"))
	handler := chained(echoHandler)

	resp, err := handler(context.Background(), newRequest())
	if err != nil {
		t.Fatalf("expect no error, got '%v'", err)
	}
	if !resp.OK() {
		t.Fatal("expect success response")
	}
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("unexpected order %v", order)
	}
}
