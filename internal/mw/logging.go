package mw

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/arabot777/idea2product-guard/internal/httpx"
	"github.com/arabot777/idea2product-guard/internal/trace"
)

type LogOpts struct {
	SkipPaths     []string
	RedactHeaders []string
}

func skip(opts LogOpts, p string) bool {
	for _, s := range opts.SkipPaths {
		if p == s {
			return true
		}
	}
	return false
}

func Logger(opts LogOpts) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || skip(opts, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := httpx.NewRecorder(w)
			next.ServeHTTP(rec, r)
			dur := time.Since(start)

			// one-liner summary
			slog.Info("req",
				"trace", trace.From(r.Context()),
				"m", r.Method,
				"path", r.URL.Path,
				"status", rec.Status,
				"ms", dur.Milliseconds(),
				"bytes", rec.Bytes,
			)

			// on error, add a compact block with redacted headers
			if rec.Status >= 500 {
				h := map[string]string{}
				for k, vv := range r.Header {
					if len(vv) == 0 {
						continue
					}
					vl := vv[0]
					if redacted(opts, k) {
						vl = "***redacted***"
					}
					h[k] = vl
				}
				slog.Error("req_detail",
					"trace", trace.From(r.Context()),
					"m", r.Method, "path", r.URL.Path,
					"status", rec.Status, "ms", dur.Milliseconds(),
					"headers", h,
				)
			}
		})
	}
}

func redacted(opts LogOpts, k string) bool {
	if strings.EqualFold(k, "Authorization") || strings.EqualFold(k, "Cookie") {
		return true
	}
	for _, rh := range opts.RedactHeaders {
		if strings.EqualFold(k, rh) {
			return true
		}
	}
	return false
}
