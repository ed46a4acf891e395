package middleware

import (
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"outline-backend/pkg/observability"
)

// Tracing opens an X-Ray segment per request and annotates it with the
// route and response status.
func Tracing(tracer *observability.Tracer) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, seg := tracer.StartSegment(r.Context(), r.Method+" "+r.URL.Path)

			tracer.AddAnnotation(ctx, "method", r.Method)
			tracer.AddAnnotation(ctx, "path", r.URL.Path)

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			tracer.AddMetadata(ctx, "status", ww.Status())
			seg.Close(nil)
		})
	}
}
