// Package kernel assembles the process-wide HTTP handler: the global
// middleware stack, operational endpoints and the API routes.
package kernel

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/teastall/teastall/app/routes"
	"github.com/teastall/teastall/config"
	"github.com/teastall/teastall/pkg/cache"
	"github.com/teastall/teastall/pkg/metrics"
	"github.com/teastall/teastall/pkg/middleware"
	"github.com/teastall/teastall/pkg/reqid"
	"github.com/teastall/teastall/pkg/response"
	"github.com/teastall/teastall/pkg/router"
	"github.com/teastall/teastall/pkg/storage"
	"github.com/teastall/teastall/pkg/ws"
)

type HTTPKernel struct {
	router *router.Router
}

// NewHTTPKernel mounts everything. Global middleware, outermost first:
//
//  1. metrics    total latency including panics
//  2. Recovery   a panic becomes a 500
//  3. reqid      request id before anything logs
//  4. Logger     request line tagged with the id
//  5. CORS       browser clients on another origin
//  6. RateLimit  per-IP budget
//
// WebSocket upgrades are held to the same origin list as CORS.
func NewHTTPKernel(d routes.Deps, limiter cache.Limiter) *HTTPKernel {
	r := router.New()

	cors := middleware.DefaultCORSOptions()
	ws.SetCheckOrigin(cors.CheckOrigin)

	r.Use(
		metrics.Middleware(),
		middleware.Recovery,
		reqid.Middleware(),
		middleware.Logger,
		middleware.CORS(cors),
	)
	if limiter != nil {
		r.Use(middleware.RateLimit(limiter))
	}

	r.HandleFunc("/metrics", metrics.Handler())
	r.Get("/health", "health", func(w http.ResponseWriter, _ *http.Request) {
		response.Success(w, map[string]string{"status": "ok"})
	})

	if local, ok := d.Disk.(*storage.LocalDisk); ok {
		prefix := storagePrefix(config.StorageURL())
		r.Handle(prefix, http.StripPrefix(prefix, local.Handler()))
	}

	routes.RegisterAPI(r, d)

	return &HTTPKernel{router: r}
}

func (k *HTTPKernel) Handler() http.Handler { return k.router.Handler() }

func (k *HTTPKernel) Router() *router.Router { return k.router }

// storagePrefix is the path part of the public storage URL, "/storage" when
// the URL has none.
func storagePrefix(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || strings.Trim(u.Path, "/") == "" {
		return "/storage"
	}
	return "/" + strings.Trim(u.Path, "/")
}
