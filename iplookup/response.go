package iplookup

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Response is an endpoint answer decoded as far as its shape allows: a JSON object lands
// in Object, a JSON string or a plain-text body lands in Text.
type Response struct {
	Header http.Header
	Object map[string]any
	Text   string
}

func decodeResponse(header http.Header, body []byte) *Response {
	resp := &Response{Header: header}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err == nil {
		switch value := decoded.(type) {
		case map[string]any:
			resp.Object = value
			return resp
		case string:
			resp.Text = strings.TrimSpace(value)
			return resp
		}
	}

	resp.Text = strings.TrimSpace(string(body))
	return resp
}

// Field returns the first non-empty scalar found at any of the given paths. A path walks
// nested objects with dots, as in "connection.isp".
func (r *Response) Field(paths ...string) string {
	for _, path := range paths {
		if value := lookupPath(r.Object, path); value != "" {
			return value
		}
	}
	return ""
}

// IP reads the address from the object at paths, or from the text body.
func (r *Response) IP(paths ...string) string {
	if r.Object == nil {
		return r.Text
	}
	return r.Field(paths...)
}

// reportedError fails responses whose payload says the lookup did not succeed.
func (r *Response) reportedError() error {
	if r.Object == nil {
		return nil
	}

	message := r.Field("message", "reason")
	if status, _ := r.Object["status"].(string); status == "fail" {
		return errors.Wrapf(ErrEndpointReportedError, "status fail: %s", message)
	}
	if success, ok := r.Object["success"].(bool); ok && !success {
		return errors.Wrapf(ErrEndpointReportedError, "success false: %s", message)
	}
	if truthy(r.Object["error"]) {
		return errors.Wrapf(ErrEndpointReportedError, "error: %s", message)
	}
	return nil
}

func lookupPath(object map[string]any, path string) string {
	var current any = object
	for _, key := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return ""
		}
		current = m[key]
	}

	switch value := current.(type) {
	case string:
		return strings.TrimSpace(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return ""
	}
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	default:
		return true
	}
}
