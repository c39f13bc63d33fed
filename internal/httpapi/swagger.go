//go:build swagger

package httpapi

import (
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
)

// MountSwagger serves the generated OpenAPI docs. Build with -tags=swagger
// after running `make swagger-gen`.
func MountSwagger(r chi.Router) {
	r.Get("/docs/*", httpSwagger.Handler())
}
