// Copyright (c) 2026 Howkings. All rights reserved.

package stubapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/howkings/howkings-go/internal/platform/constants"
)

const (
	rateLimitRPS    = 20
	rateLimitBurst  = 40
	clientTTL       = 10 * time.Minute
	cleanupInterval = time.Minute
)

// # Request Tracing

// requestID attaches a correlation ID to every request.
func requestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			id := request.Header.Get(constants.HeaderXRequestID)
			if id == "" {
				if v7, err := uuid.NewV7(); err == nil {
					id = v7.String()
				} else {
					id = uuid.NewString()
				}
			}

			writer.Header().Set(constants.HeaderXRequestID, id)
			next.ServeHTTP(writer, request)
		})
	}
}

// # Activity Logging

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (recorder *statusRecorder) WriteHeader(code int) {
	recorder.status = code
	recorder.ResponseWriter.WriteHeader(code)
}

// structuredLogger logs every finished request with status and latency.
func structuredLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: writer, status: http.StatusOK}

			next.ServeHTTP(recorder, request)

			level := slog.LevelInfo
			switch {
			case recorder.status >= 500:
				level = slog.LevelError
			case recorder.status >= 400:
				level = slog.LevelWarn
			}

			logger.Log(request.Context(), level, "http_request_finished",
				slog.String("request_id", writer.Header().Get(constants.HeaderXRequestID)),
				slog.String("method", request.Method),
				slog.String("path", request.URL.Path),
				slog.Int("status", recorder.status),
				slog.Int64("latency_ms", time.Since(start).Milliseconds()),
				slog.String("ip", realIP(request)),
			)
		})
	}
}

// # Rate Limiting

type rateLimitClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimit bounds requests per client IP with a token bucket. Stale client
// buckets are reaped in the background until ctx is canceled.
func rateLimit(ctx context.Context) func(http.Handler) http.Handler {
	var (
		mu      sync.Mutex
		clients = make(map[string]*rateLimitClient)
	)

	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				mu.Lock()
				for ip, client := range clients {
					if time.Since(client.lastSeen) > clientTTL {
						delete(clients, ip)
					}
				}
				mu.Unlock()
			case <-ctx.Done():
				return
			}
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			ip := realIP(request)

			mu.Lock()
			client, found := clients[ip]
			if !found {
				client = &rateLimitClient{limiter: rate.NewLimiter(rate.Limit(rateLimitRPS), rateLimitBurst)}
				clients[ip] = client
			}
			client.lastSeen = time.Now()
			allowed := client.limiter.Allow()
			mu.Unlock()

			if !allowed {
				fail(writer, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// # Reliability

// panicRecovery converts handler panics into a clean 500.
func panicRecovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			defer func() {
				if recovered := recover(); recovered != nil {
					stack := make([]byte, 2048)
					length := runtime.Stack(stack, false)

					logger.ErrorContext(request.Context(), "panic_recovered",
						slog.Any("error", recovered),
						slog.String("stack", string(stack[:length])),
					)
					fail(writer, http.StatusInternalServerError, "An unexpected error occurred")
				}
			}()

			next.ServeHTTP(writer, request)
		})
	}
}

// # CSRF

// csrfGuard enforces the double-submit cookie scheme on state-changing
// methods: once the XSRF-TOKEN cookie has been primed, its value must come
// back in the X-CSRF-TOKEN header. Unprimed clients pass through so plain
// curl against the stub still works.
func csrfGuard() func(http.Handler) http.Handler {
	safe := map[string]bool{
		http.MethodGet:     true,
		http.MethodHead:    true,
		http.MethodOptions: true,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if safe[request.Method] {
				next.ServeHTTP(writer, request)
				return
			}

			cookie, err := request.Cookie(constants.CSRFCookieName)
			if err == nil && cookie.Value != "" {
				if request.Header.Get(constants.HeaderCSRFToken) != cookie.Value {
					fail(writer, http.StatusForbidden, "CSRF token mismatch")
					return
				}
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// realIP extracts the client IP, honoring common proxy headers.
func realIP(request *http.Request) string {
	if forwarded := request.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if ip := request.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}

	host, _, _ := net.SplitHostPort(request.RemoteAddr)
	return host
}
