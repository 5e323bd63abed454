package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/arabot777/idea2product-guard/internal/guard"
	"github.com/arabot777/idea2product-guard/internal/httpx"
	"github.com/arabot777/idea2product-guard/internal/permit"
	"github.com/arabot777/idea2product-guard/internal/trace"
)

// CheckHandler is the decision endpoint: the application posts a
// request descriptor plus the user's session context and gets the
// engine's verdict back. This is how sidecar deployments consult the
// engine without linking it in.
type CheckHandler struct {
	Guard *guard.Guard
}

func NewCheckHandler(g *guard.Guard) *CheckHandler {
	return &CheckHandler{Guard: g}
}

type checkRequest struct {
	Scope  permit.Scope       `json:"scope"`
	Target string             `json:"target"`
	Method string             `json:"method,omitempty"`
	User   permit.UserContext `json:"user"`
}

func (h *CheckHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !req.Scope.Valid() {
		httpx.WriteError(w, http.StatusBadRequest, "unknown scope")
		return
	}
	if req.Target == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing target")
		return
	}

	res, err := h.Guard.Check(r.Context(), req.Scope, req.Target, req.Method, req.User)
	if err != nil {
		slog.Error("check failed", "trace", trace.From(r.Context()), "scope", req.Scope, "target", req.Target, "err", err)
		httpx.WriteError(w, http.StatusServiceUnavailable, "permission rules unavailable")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}
