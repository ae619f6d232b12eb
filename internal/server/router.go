// Package server assembles the HTTP routes.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/petermazzocco/go-catalog-api/internal/auth"
	"github.com/petermazzocco/go-catalog-api/internal/handlers"
)

type Options struct {
	CORSOrigins []string
	// RateLimitPerMinute caps signup and login attempts per client IP.
	// Zero disables the limit.
	RateLimitPerMinute int
	// ProtectWrites puts the product and image mutations behind a bearer
	// token.
	ProtectWrites bool
	// AccessLog enables chi's request logger.
	AccessLog bool
}

func NewRouter(api *handlers.API, authSvc *auth.Service, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if opts.AccessLog {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	// cors treats an empty allow-list as "*", so no origins means no CORS.
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowedHeaders:   []string{"Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", api.Wrap(api.ServeUpload)))

	requireToken := func(next http.Handler) http.Handler { return next }
	if opts.ProtectWrites {
		requireToken = authSvc.Middleware(api.WriteError)
	}

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if opts.RateLimitPerMinute > 0 {
				r.Use(httprate.Limit(
					opts.RateLimitPerMinute,
					time.Minute,
					httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
				))
			}
			r.Post("/signup", api.Wrap(api.Signup))
			r.Post("/login", api.Wrap(api.Login))
		})

		r.Get("/products", api.Wrap(api.ListProducts))
		r.Get("/getProductsById/{id}", api.Wrap(api.GetProduct))
		r.Get("/products/{category}", api.Wrap(api.ListProductsByCategory))
		r.Get("/products/{category}/{subcategory}", api.Wrap(api.ListProductsBySubcategory))
		r.Get("/{id}/features", api.Wrap(api.GetProductFeatures))
		r.Get("/{id}/file", api.Wrap(api.GetProductFile))
		r.Get("/getAllImages", api.Wrap(api.ListImages))
		r.Post("/quick-enquiry-form", api.Wrap(api.RegisterEnquiry))

		r.Group(func(r chi.Router) {
			r.Use(requireToken)
			r.Post("/products", api.Wrap(api.CreateProduct))
			r.Delete("/products/{id}", api.Wrap(api.DeleteProduct))
			r.Post("/{id}/features", api.Wrap(api.AddProductFeatures))
			r.Post("/addImage", api.Wrap(api.CreateImage))
			r.Delete("/images/{id}", api.Wrap(api.DeleteImage))
		})
	})

	return r
}
