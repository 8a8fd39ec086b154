package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/mcoot/bughunt/internal/api/apierr"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

// decodeBody decodes a JSON request body into dst. An empty body leaves dst
// at its zero value so field validation reports what is missing.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apierr.NewInvalidRequestError("invalid request body")
	}
	return nil
}
