// Package openapi embeds the service's OpenAPI document and serves it as
// either YAML (its native form) or JSON, converted with gopkg.in/yaml.v3.
package openapi

import (
	_ "embed"
	"encoding/json"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed doc.yaml
var rawYAML []byte

var (
	once     sync.Once
	jsonForm []byte
)

// YAML returns the embedded OpenAPI document verbatim.
func YAML() []byte {
	return rawYAML
}

// JSON converts the embedded YAML document to JSON, memoizing the result.
func JSON() []byte {
	once.Do(func() {
		var doc any
		if err := yaml.Unmarshal(rawYAML, &doc); err != nil {
			jsonForm = []byte(`{"error":"invalid embedded schema"}`)
			return
		}
		b, err := json.Marshal(normalize(doc))
		if err != nil {
			jsonForm = []byte(`{"error":"schema conversion failed"}`)
			return
		}
		jsonForm = b
	})
	return jsonForm
}

// normalize converts yaml.v3's map[string]interface{} keys (already strings)
// recursively so json.Marshal never encounters map[interface{}]interface{}.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	default:
		return v
	}
}
