package mcpserver

import (
	"encoding/json"
	"fmt"
)

// parseJSON parses a JSON string into the target type.
func parseJSON(data string, target any) error {
	return json.Unmarshal([]byte(data), target)
}

// stringArg returns a required string argument.
func stringArg(args map[string]any, key string) (string, error) {
	v, _ := args[key].(string)
	if v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

// optString returns a string argument or def when absent.
func optString(args map[string]any, key, def string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return def
}

// optInt returns a numeric argument as int or def when absent. JSON numbers
// arrive as float64.
func optInt(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

func boolPtr(v bool) *bool { return &v }
