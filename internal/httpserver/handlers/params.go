package handlers

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"
)

// ParseLaunchParams decodes a launch body into string parameters. JSON is tried
// when the content type says so; anything that does not decode as a JSON object
// is read as URL-encoded form data instead. Errors are never reported.
func ParseLaunchParams(body []byte, contentType string) map[string]string {
	params := map[string]string{}
	if len(bytes.TrimSpace(body)) == 0 {
		return params
	}

	if strings.Contains(strings.ToLower(contentType), "json") {
		if decoded, ok := decodeJSONObject(body); ok {
			return decoded
		}
	}

	// ParseQuery keeps every pair it could read even when it also returns an error.
	values, _ := url.ParseQuery(string(body))
	for key, vals := range values {
		if len(vals) == 0 || vals[0] == "" {
			continue
		}
		params[key] = vals[0]
	}
	return params
}

func decodeJSONObject(body []byte) (map[string]string, bool) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil || raw == nil {
		return nil, false
	}

	params := make(map[string]string, len(raw))
	for key, val := range raw {
		params[key] = stringify(val)
	}
	return params, true
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		out, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(out)
	}
}

// pairingCandidate returns the code a client sent, if any.
func pairingCandidate(params map[string]string) string {
	if c := params["pairingCode"]; c != "" {
		return c
	}
	return params["code"]
}
