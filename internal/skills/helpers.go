package skills

import (
	"fmt"

	"github.com/novafield/rewind/internal/types"
)

// Success builds a successful result with data.
func Success(data map[string]interface{}) *types.Result {
	return &types.Result{Success: true, Data: data}
}

// Failure builds a failed result with an error message.
func Failure(message string) *types.Result {
	return &types.Result{Success: false, Error: &message}
}

func stringParam(params map[string]interface{}, key string) (string, error) {
	val, ok := params[key]
	if !ok {
		return "", fmt.Errorf("missing required parameter %q", key)
	}
	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("parameter %q must be a string", key)
	}
	return s, nil
}

func optionalString(params map[string]interface{}, key, fallback string) string {
	if val, ok := params[key].(string); ok {
		return val
	}
	return fallback
}

func floatParam(params map[string]interface{}, key string, fallback float64) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return fallback
	}
}
