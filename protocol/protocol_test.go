package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"oars-console/codec"
	"oars-console/message"
	"strings"
	"testing"
)

func newResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestEncode(t *testing.T) {
	c := codec.GetCodec(codec.CodecTypeJSON)
	req := message.NewRequest("system.admin.service.get", map[string]string{"namespace": "default"}, "v1")
	req.Header.Set(HeaderToken, "abc")

	httpReq, err := Encode(context.Background(), "http://gateway.local/", req, c)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	if httpReq.Method != http.MethodPost {
		t.Errorf("Method mismatch: got %s", httpReq.Method)
	}
	if httpReq.URL.String() != "http://gateway.local/api/gateway" {
		t.Errorf("URL mismatch: got %s", httpReq.URL)
	}
	if got := httpReq.Header.Get(HeaderContentType); got != "application/json" {
		t.Errorf("Content-Type mismatch: got %s", got)
	}
	if got := httpReq.Header.Get(HeaderToken); got != "abc" {
		t.Errorf("token mismatch: got %s", got)
	}

	body, _ := io.ReadAll(httpReq.Body)
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["method"] != "system.admin.service.get" || decoded["version"] != "v1" {
		t.Errorf("unexpected body %s", body)
	}
	if _, ok := decoded["Header"]; ok {
		t.Errorf("headers leaked into the body: %s", body)
	}
}

func TestDecode(t *testing.T) {
	c := codec.GetCodec(codec.CodecTypeJSON)

	// 2xx + 合法信封
	resp, err := Decode(newResponse(200, `{"code":10000,"data":{"ok":true}}`), c)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !resp.OK() {
		t.Fatalf("expect success, got %d", resp.Code)
	}

	// 2xx + 业务失败
	resp, err = Decode(newResponse(200, `{"code":42,"msg":"X"}`), c)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Code != 42 || resp.Msg != "X" {
		t.Fatalf("unexpected envelope %+v", resp)
	}

	// 非 2xx 但 body 是信封
	resp, err = Decode(newResponse(500, `{"code":10001,"msg":"boom"}`), c)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Code != message.CodeInternalError {
		t.Fatalf("unexpected code %d", resp.Code)
	}
}

func TestDecodeFailures(t *testing.T) {
	c := codec.GetCodec(codec.CodecTypeJSON)

	_, err := Decode(newResponse(502, `<html>bad gateway</html>`), c)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != 502 {
		t.Fatalf("expect StatusError 502, got %v", err)
	}

	_, err = Decode(newResponse(500, `{"code":10000,"data":"ok"}`), c)
	if !errors.As(err, &statusErr) || statusErr.StatusCode != 500 {
		t.Fatalf("non-2xx must never succeed, got %v", err)
	}

	_, err = Decode(newResponse(404, ``), c)
	if !errors.As(err, &statusErr) || statusErr.StatusCode != 404 {
		t.Fatalf("expect StatusError 404, got %v", err)
	}

	_, err = Decode(newResponse(200, ``), c)
	if !errors.Is(err, ErrEmptyBody) {
		t.Fatalf("expect ErrEmptyBody, got %v", err)
	}

	_, err = Decode(newResponse(200, `not json`), c)
	if err == nil {
		t.Fatal("expect decode error")
	}
}

func TestReadAndWrite(t *testing.T) {
	c := codec.GetCodec(codec.CodecTypeJSON)

	httpReq := httptest.NewRequest(http.MethodPost, GatewayPath, strings.NewReader(`{"method":"a.b.c.d","args":[1],"version":1}`))
	httpReq.Header.Set(HeaderToken, "abc")

	req, err := ReadRequest(httpReq, c)
	if err != nil {
		t.Fatal(err)
	}
	if req.Method != "a.b.c.d" || req.Header.Get(HeaderToken) != "abc" {
		t.Fatalf("unexpected request %+v", req)
	}

	rec := httptest.NewRecorder()
	if err := WriteResponse(rec, message.Failure(message.CodeMethodNotFound, ""), c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expect 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"code":10003`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}
