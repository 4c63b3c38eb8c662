package message

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type NamespaceArgs struct {
	Name string `json:"name"`
}

func TestRequestBody(t *testing.T) {
	req := NewRequest("system.admin.namespace.get", &NamespaceArgs{Name: "default"}, "v1")
	req.Header.Set("token", "abc") // 头部不能出现在 body 里

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Failed to unmarshal with error: %v", err)
	}

	want := map[string]any{
		"method":  "system.admin.namespace.get",
		"args":    map[string]any{"name": "default"},
		"version": "v1",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("request body mismatch (-want +got):\n%s", diff)
	}
}

func TestNumericVersion(t *testing.T) {
	data, err := json.Marshal(NewRequest("a.b.c.d", nil, 2))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"method":"a.b.c.d","args":null,"version":2}` {
		t.Fatalf("unexpected body %s", data)
	}
}

func TestResponseDecode(t *testing.T) {
	var resp Response
	if err := json.Unmarshal([]byte(`{"code":10000,"data":[{"name":"system"}]}`), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.OK() {
		t.Fatalf("expect success, got %v", resp.Code)
	}

	var list []NamespaceArgs
	if err := resp.Decode(&list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Name != "system" {
		t.Fatalf("unexpected data %+v", list)
	}

	failed := Failure(CodeMethodNotFound, "")
	if failed.OK() {
		t.Fatal("failure must not be OK")
	}
	if failed.Msg != "method not found" {
		t.Fatalf("expect default message, got %q", failed.Msg)
	}
}

func TestParseMethod(t *testing.T) {
	cases := []struct {
		in                   string
		ns, svc, res, action string
	}{
		{"system.admin.namespace.get", "system", "admin", "namespace", "get"},
		{"system.admin.namespace", "system", "admin", "namespace", ""},
		{"system", "system", "", "", ""},
		{"a.b.c.d.e", "a", "b", "c", "d"},
	}
	for _, tc := range cases {
		ns, svc, res, action := ParseMethod(tc.in)
		if ns != tc.ns || svc != tc.svc || res != tc.res || action != tc.action {
			t.Errorf("ParseMethod(%q) = %q %q %q %q", tc.in, ns, svc, res, action)
		}
	}

	if got := Method("system", "admin", "cert", "put"); got != "system.admin.cert.put" {
		t.Fatalf("Method() = %s", got)
	}
}
