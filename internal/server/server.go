// Package server is the HTTP boundary: routing, CORS, request validation,
// and the translation of core results into responses.
package server

import (
	"context"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	oapimiddleware "github.com/oapi-codegen/nethttp-middleware"
	"go.uber.org/zap"

	"github.com/framewell/framesink/api"
)

// NewRouter assembles the full route tree. The streaming endpoints are
// passed in as handlers so the router stays ignorant of their transports;
// ws may be nil when WebSocket streaming is disabled.
func NewRouter(h *Handlers, sse, ws http.Handler, logger *zap.Logger) (http.Handler, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(api.OpenAPISpec)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, err
	}
	doc.Servers = nil // allow any host

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)
	r.Use(zapLoggerMiddleware(logger))

	// Non-validated routes. The event stream is long-lived and the docs
	// routes aren't part of the API surface.
	r.Get("/", h.handleRoot)
	r.Get("/events", sse.ServeHTTP)
	if ws != nil {
		r.Get("/ws", ws.ServeHTTP)
	}
	r.Get("/openapi.yaml", openapiHandler)
	r.Get("/docs", swaggerUIHandler)

	// API routes with OpenAPI validation.
	r.Group(func(apiRouter chi.Router) {
		apiRouter.Use(oapimiddleware.OapiRequestValidator(doc))

		apiRouter.Post("/ingest", h.handleIngest)
		apiRouter.Get("/latest", h.handleLatest)
		apiRouter.Get("/snapshot", h.handleSnapshot)
		apiRouter.Get("/status", h.handleStatus)
		apiRouter.Get("/healthz", h.handleHealthz)
	})

	return r, nil
}

// corsMiddleware mirrors the permissive policy the companion apps rely on:
// every response, errors and preflights included, carries the CORS headers.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Max-Age", "86400")
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func zapLoggerMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
			)
			next.ServeHTTP(w, r)
		})
	}
}

func openapiHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.Write(api.OpenAPISpec)
}

func swaggerUIHandler(w http.ResponseWriter, r *http.Request) {
	html := `<!DOCTYPE html>
<html>
<head>
    <title>Framesink API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.10.3/swagger-ui.css">
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5.10.3/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            SwaggerUIBundle({
                url: "/openapi.yaml",
                dom_id: '#swagger-ui',
            });
        };
    </script>
</body>
</html>`
	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte(html))
}
