package api

import (
	"encoding/json"
	"io"
	"net/http"
	"sort"
)

// decodeError turns a non-2xx response into a structured *Error. The body is
// decoded leniently: backends answer with a top-level "detail" string, a
// field-keyed "errors" map (flat strings or arrays of strings), or an
// arbitrary field-keyed payload.
func decodeError(resp *http.Response) *Error {
	apiErr := &Error{StatusCode: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil || len(data) == 0 {
		return apiErr
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return apiErr
	}
	apiErr.Raw = raw

	if detail, ok := raw["detail"].(string); ok {
		apiErr.Detail = detail
	}

	if errMap, ok := raw["errors"].(map[string]any); ok {
		apiErr.Fields = normalizeFieldErrors(errMap)
	}

	return apiErr
}

func normalizeFieldErrors(raw map[string]any) map[string][]string {
	fields := make(map[string][]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case string:
			fields[key] = []string{v}
		case []any:
			var messages []string
			for _, item := range v {
				if s, ok := item.(string); ok {
					messages = append(messages, s)
				}
			}
			if len(messages) > 0 {
				fields[key] = messages
			}
		}
	}
	return fields
}

// firstRawValue returns the value of the lexically first string-ish key in a
// raw payload, the last-resort message source for 400-class errors.
func firstRawValue(raw map[string]any) string {
	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		switch v := raw[key].(type) {
		case string:
			return v
		case []any:
			if len(v) > 0 {
				if s, ok := v[0].(string); ok {
					return s
				}
			}
		}
	}
	return ""
}
