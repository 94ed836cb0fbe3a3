package handler

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/replaytrader/internal/service"
)

// Services bundles the application services the router exposes.
type Services struct {
	Replay    *service.ReplayService
	Orders    *service.OrderService
	Portfolio *service.PortfolioService
}

// NewRouter creates a chi router with all routes registered, request logging,
// and Content-Type validation middleware. stream and metrics are mounted at
// /ws and /metrics when non-nil.
func NewRouter(svc Services, stream, metrics http.Handler, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(requestLogging(logger))
	r.Use(contentTypeJSON)

	// Create handlers.
	replayH := NewReplayHandler(svc.Replay)
	orderH := NewOrderHandler(svc.Orders)
	portfolioH := NewPortfolioHandler(svc.Portfolio)

	// Health check.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Series and replay routes.
	r.Post("/series", replayH.LoadSeries)
	r.Route("/replay", func(r chi.Router) {
		r.Get("/", replayH.State)
		r.Post("/start", replayH.Start)
		r.Post("/pause", replayH.Pause)
		r.Post("/resume", replayH.Resume)
		r.Post("/stop", replayH.Stop)
		r.Post("/speed", replayH.SetSpeed)
		r.Post("/seek", replayH.Seek)
		r.Post("/step", replayH.Step)
	})

	// Order routes.
	r.Post("/orders", orderH.SubmitOrder)
	r.Get("/orders", orderH.ListOrders)
	r.Delete("/orders/{order_id}", orderH.CancelOrder)

	// Trading account routes.
	r.Post("/trades", orderH.MarketOrder)
	r.Get("/transactions", orderH.ListTransactions)
	r.Get("/portfolio", portfolioH.Get)

	if stream != nil {
		r.Method(http.MethodGet, "/ws", stream)
	}
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	return r
}

// requestLogging returns middleware that logs each request's method, path,
// status code, and duration using slog.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrade take over the connection.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// contentTypeJSON is middleware that validates Content-Type for POST, PUT, and
// PATCH requests that carry a body. If the Content-Type header doesn't start
// with "application/json", it returns 400 Bad Request before the handler runs.
func contentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if r.ContentLength != 0 && (ct == "" || !strings.HasPrefix(ct, "application/json")) {
				WriteError(w, http.StatusBadRequest, "invalid_request",
					"Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
