package tools

import (
	"github.com/atc-agent/atc/internal/toolerrors"
)

// Argument extraction from decoded JSON objects. Numbers arrive as
// float64; each helper converts and validates.

func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", toolerrors.New(toolerrors.KindBadArgs, "%s is required", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", toolerrors.New(toolerrors.KindBadArgs, "%s must be a non-empty string", key)
	}
	return s, nil
}

func optStringArg(args map[string]any, key, def string) (string, error) {
	v, ok := args[key]
	if !ok {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", toolerrors.New(toolerrors.KindBadArgs, "%s must be a string", key)
	}
	return s, nil
}

func optUintArg(args map[string]any, key string, def uint64) (uint64, error) {
	v, ok := args[key]
	if !ok {
		return def, nil
	}
	f, ok := v.(float64)
	if !ok || f < 0 {
		return 0, toolerrors.New(toolerrors.KindBadArgs, "%s must be a non-negative number", key)
	}
	return uint64(f), nil
}

func optBoolArg(args map[string]any, key string) (*bool, error) {
	v, ok := args[key]
	if !ok {
		return nil, nil
	}
	b, ok := v.(bool)
	if !ok {
		return nil, toolerrors.New(toolerrors.KindBadArgs, "%s must be a boolean", key)
	}
	return &b, nil
}

func boolArgDefault(args map[string]any, key string, def bool) (bool, error) {
	p, err := optBoolArg(args, key)
	if err != nil {
		return false, err
	}
	if p == nil {
		return def, nil
	}
	return *p, nil
}
