// Package message defines the envelopes exchanged with the gateway.
//
// Request is the "envelope" for every logical call. All calls share one HTTP
// endpoint; the Method field is what selects server-side behavior.
//
//	→ {"method":"system.admin.namespace.get","args":{...},"version":"v1"}
//	← {"code":10000,"data":[...]}
package message

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Code is the status code carried by every Response.
type Code int

const (
	// CodeSuccess is the only success sentinel. Everything else is a failure.
	CodeSuccess Code = 10000 + iota
	CodeInternalError
	CodeInvalidParameter
	CodeMethodNotFound
	CodeResourceNotFound
)

func (c Code) String() string {
	switch c {
	case CodeSuccess:
		return "success"
	case CodeInternalError:
		return "internal error"
	case CodeInvalidParameter:
		return "invalid parameter"
	case CodeMethodNotFound:
		return "method not found"
	case CodeResourceNotFound:
		return "resource not found"
	}
	return fmt.Sprintf("code %d", int(c))
}

// Request carries one logical call.
//
//   - Method selects server-side behavior, e.g. "system.admin.namespace.get".
//   - Args is passed through untouched.
//   - Version is a string or a number disambiguating API revisions.
//   - Header travels with the request but is never part of the body.
type Request struct {
	Method  string      `json:"method" cbor:"method"`
	Args    any         `json:"args" cbor:"args"`
	Version any         `json:"version" cbor:"version"`
	Header  http.Header `json:"-" cbor:"-"`
}

// NewRequest builds a request with an empty header set.
func NewRequest(method string, args any, version any) *Request {
	return &Request{
		Method:  method,
		Args:    args,
		Version: version,
		Header:  make(http.Header),
	}
}

// Response is the decoded gateway reply. Data stays raw so callers decode it
// into their own types.
type Response struct {
	Code    Code            `json:"code"`
	Data    json.RawMessage `json:"data,omitempty"`
	Msg     string          `json:"msg,omitempty"`
	SubCode string          `json:"sub_code,omitempty"`
	SubMsg  string          `json:"sub_msg,omitempty"`
}

// OK reports whether the response carries the success sentinel.
func (r *Response) OK() bool {
	return r != nil && r.Code == CodeSuccess
}

// Decode unmarshals Data into v. Empty data leaves v untouched.
func (r *Response) Decode(v any) error {
	if len(r.Data) == 0 || string(r.Data) == "null" {
		return nil
	}
	return json.Unmarshal(r.Data, v)
}

// Reply builds a success response around data.
func Reply(data any) (*Response, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Response{Code: CodeSuccess, Data: raw}, nil
}

// Failure builds a failed response. The message defaults to the code's text.
func Failure(code Code, msg string) *Response {
	if msg == "" {
		msg = code.String()
	}
	return &Response{Code: code, Msg: msg}
}

// ParseMethod splits "namespace.service.resource.action". Missing parts are
// returned empty; parts beyond the fourth are ignored.
func ParseMethod(method string) (namespace, service, resource, action string) {
	items := strings.Split(method, ".")
	for i, item := range items {
		switch i {
		case 0:
			namespace = item
		case 1:
			service = item
		case 2:
			resource = item
		case 3:
			action = item
		}
	}
	return
}

// Method joins the four parts of a method path.
func Method(namespace, service, resource, action string) string {
	return namespace + "." + service + "." + resource + "." + action
}
