package client

import (
	"context"
	"net/http/httptest"
	"oars-console/admin"
	"oars-console/codec"
	"oars-console/message"
	"oars-console/server"
	"testing"
)

func setupStubAndClient(b *testing.B) *Client {
	svr := server.NewServer()
	if err := server.RegisterStub(svr, server.NewStub()); err != nil {
		b.Fatal(err)
	}
	ts := httptest.NewServer(svr.Handler())
	b.Cleanup(ts.Close)

	cli, err := New(Config{BaseURL: ts.URL})
	if err != nil {
		b.Fatal(err)
	}
	return cli
}

// 场景1: 单 goroutine 串行调用
func BenchmarkSerialCall(b *testing.B) {
	cli := setupStubAndClient(b)
	ctx := context.Background()
	args := &admin.Namespace{}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var reply []admin.Namespace
		if err := cli.CallInto(ctx, "system.admin.namespace.get", args, admin.Version, &reply); err != nil {
			b.Fatal(err)
		}
	}
}

// 场景2: 多 goroutine 并发调用，共享一个 http.Client
func BenchmarkConcurrentCall(b *testing.B) {
	cli := setupStubAndClient(b)
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		args := &admin.Namespace{}
		for pb.Next() {
			var reply []admin.Namespace
			if err := cli.CallInto(ctx, "system.admin.namespace.get", args, admin.Version, &reply); err != nil {
				b.Error(err)
				return
			}
		}
	})
}

// 场景3/4: 信封编解码（不走网络，纯 codec）
func benchmarkCodec(b *testing.B, t codec.CodecType) {
	cdc := codec.GetCodec(t)
	req := message.NewRequest("system.admin.namespace.get", map[string]any{"name": "default"}, admin.Version)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		data, _ := cdc.Encode(req)
		var out message.Request
		cdc.Decode(data, &out)
	}
}

func BenchmarkCodecJSON(b *testing.B) { benchmarkCodec(b, codec.CodecTypeJSON) }
func BenchmarkCodecCBOR(b *testing.B) { benchmarkCodec(b, codec.CodecTypeCBOR) }
