package actions

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// stringParam returns a trimmed string parameter or def when absent or blank
func stringParam(params map[string]interface{}, key, def string) string {
	v, ok := params[key]
	if !ok || v == nil {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

// intParam reads an integral parameter, accepting JSON numbers and Go integer types
func intParam(params map[string]interface{}, key string) (int, bool, error) {
	v, ok := params[key]
	if !ok || v == nil {
		return 0, false, nil
	}

	switch n := v.(type) {
	case int:
		return n, true, nil
	case int32:
		return int(n), true, nil
	case int64:
		return int(n), true, nil
	case float64:
		if n != math.Trunc(n) {
			return 0, true, fmt.Errorf("parameter %s must be a whole number, got %v", key, n)
		}
		return int(n), true, nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, true, fmt.Errorf("parameter %s must be a whole number: %w", key, err)
		}
		return int(i), true, nil
	default:
		return 0, true, fmt.Errorf("parameter %s must be a number, got %T", key, v)
	}
}
