//go:build !swagger

package httpapi

import "github.com/go-chi/chi/v5"

// MountSwagger routes nothing without -tags=swagger, so /swagger/ falls through
// to the JSON 404.
func MountSwagger(chi.Router) {}
