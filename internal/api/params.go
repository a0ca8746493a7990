package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"kaizen/internal/errors"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

// decodeJSON reads the request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return errors.NewInvalidParameterError("body", "request body is required")
		}
		return errors.NewInvalidParameterError("body", fmt.Sprintf("invalid JSON: %v", err))
	}
	return nil
}

// boolParam parses an optional boolean query parameter
func boolParam(r *http.Request, name string) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.NewInvalidParameterError(name, "must be a boolean")
	}
	return b, nil
}
