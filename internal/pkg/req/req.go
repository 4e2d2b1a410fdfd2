/*
Package req provides helper functions for HTTP request parsing and data binding.

It encapsulates the logic for decoding JSON bodies and validating the resulting
structs against their `validate` tags, and integrates error handling to ensure
data format correctness before business logic runs.
*/
package req

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"vaaniarc/internal/pkg/errs"
	"vaaniarc/internal/pkg/logx"
)

// MaxBodyBytes defines the maximum allowed size (1 MB) for a JSON request body,
// enforced via http.MaxBytesReader.
const MaxBodyBytes int64 = 1 << 20

// validate is the shared validator instance. Validator instances cache struct
// metadata, so a single instance is reused across all requests.
var validate = validator.New(validator.WithRequiredStructEnabled())

// BindJSON binds the JSON data from the HTTP request body to the destination struct dst
// and validates it against the struct's `validate` tags.
func BindJSON(r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(nil, r.Body, MaxBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return errs.NewError(errs.ErrRequestEntityTooLarge)
		}
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	if err := validate.Struct(dst); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			logx.Warn("Request validation failed",
				"field", fieldErrs[0].Field(),
				"rule", fieldErrs[0].Tag(),
			)
		}
		return errs.NewError(errs.ErrInvalidParams)
	}

	return nil
}
