package mcp

import (
	"fmt"
	"strings"

	"kaizen/internal/errors"
)

// requireString returns a non-empty string argument
func requireString(params map[string]interface{}, name string) (string, error) {
	v, ok := params[name].(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", errors.NewInvalidParameterError(name, "required string")
	}
	return v, nil
}

// optionalString returns a string argument and whether it was supplied
func optionalString(params map[string]interface{}, name string) (*string, error) {
	raw, present := params[name]
	if !present || raw == nil {
		return nil, nil
	}
	v, ok := raw.(string)
	if !ok {
		return nil, errors.NewInvalidParameterError(name, "expected a string")
	}
	return &v, nil
}

// optionalTaskSize is optionalString for task_size, reporting a non-string
// value as an invalid task size filter
func optionalTaskSize(params map[string]interface{}) (*string, error) {
	v, err := optionalString(params, "task_size")
	if err != nil {
		return nil, errors.NewInvalidTaskSizeError(fmt.Sprint(params["task_size"]))
	}
	return v, nil
}

// taskSizeParam returns task_size, or "" when it is absent
func taskSizeParam(params map[string]interface{}) (string, error) {
	v, err := optionalTaskSize(params)
	if err != nil || v == nil {
		return "", err
	}
	return *v, nil
}

// stringList accepts either an array of strings or a single string
func stringList(params map[string]interface{}, name string) ([]string, bool, error) {
	raw, present := params[name]
	if !present || raw == nil {
		return nil, false, nil
	}
	switch v := raw.(type) {
	case string:
		return []string{v}, true, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, true, errors.NewInvalidParameterError(name, "expected an array of strings")
			}
			out = append(out, str)
		}
		return out, true, nil
	default:
		return nil, true, errors.NewInvalidParameterError(name, "expected an array of strings")
	}
}

// requireStringList returns a non-empty list argument
func requireStringList(params map[string]interface{}, name string) ([]string, error) {
	list, _, err := stringList(params, name)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, errors.NewInvalidParameterError(name, "at least one value is required")
	}
	return list, nil
}
