// Package server is the ambient HTTP plumbing the business routes sit on
// top of: listener setup, security headers, graceful shutdown and the
// liveness/version/profiling endpoints, in the same shape as the
// teacher's ServePage/web.go.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/busfahrer/server/internal/config"
)

const timeout = 10 * time.Second

func securityHeaders(cfg *config.Config, w http.ResponseWriter) {
	w.Header().Set("Cross-Origin-Embedder-Policy", "require-corp")
	w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
	w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if cfg.Scheme() == "https" {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}
}

func logf(cfg *config.Config, format string, args ...any) {
	if !cfg.Verbose {
		return
	}
	fmt.Printf("%s | "+format+"\n", append([]any{time.Now().Format("2006-01-02T15:04:05.000-07:00")}, args...)...)
}

func serveVersion(cfg *config.Config, version string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("busd v" + version + "\n"))
	}
}

func serveHealthz(cfg *config.Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}
}

func registerProfileHandlers(mux *httprouter.Router) {
	mux.HandlerFunc(http.MethodGet, "/debug/pprof/", pprof.Index)
	mux.HandlerFunc(http.MethodGet, "/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandlerFunc(http.MethodGet, "/debug/pprof/profile", pprof.Profile)
	mux.HandlerFunc(http.MethodGet, "/debug/pprof/symbol", pprof.Symbol)
	mux.HandlerFunc(http.MethodGet, "/debug/pprof/trace", pprof.Trace)
}

// CommandRoutes is satisfied by httpapi.Server; wsapi.Server is passed to
// Serve separately as the /ws http.Handler.
type CommandRoutes interface {
	Register(router *httprouter.Router)
}

// Serve builds the router, registers the command surface plus the
// ambient endpoints, and blocks serving until ctx is cancelled, then
// drains in-flight requests per the teacher's shutdown shape.
func Serve(ctx context.Context, cfg *config.Config, version string, routes CommandRoutes, ws http.Handler) error {
	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("internal server error\n"))
	}

	mux.GET("/healthz", serveHealthz(cfg))
	mux.GET("/version", serveVersion(cfg, version))

	if cfg.Profile {
		registerProfileHandlers(mux)
	}

	routes.Register(mux)
	mux.Handler(http.MethodGet, "/ws", ws)

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Bind, strconv.Itoa(cfg.Port)),
		Handler:           mux,
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
		WriteTimeout:      timeout,
	}

	errs := make(chan error, 1)
	go func() {
		logf(cfg, "SERVE: listening on %s://%s%s/", cfg.Scheme(), srv.Addr, cfg.Prefix)
		var err error
		if cfg.TLSCert != "" && cfg.TLSKey != "" {
			err = srv.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
