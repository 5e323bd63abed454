package handlers

import (
	"log/slog"
	"net/http"

	"github.com/arabot777/idea2product-guard/internal/httpx"
	"github.com/arabot777/idea2product-guard/internal/rulestore"
	"github.com/arabot777/idea2product-guard/internal/trace"
)

// RulesHandler exposes the loaded rule set to operators: listing for
// inspection, reload for picking up rule-source changes without a
// restart.
type RulesHandler struct {
	Store *rulestore.Store
}

func NewRulesHandler(s *rulestore.Store) *RulesHandler {
	return &RulesHandler{Store: s}
}

func (h *RulesHandler) List(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Store.AllRules(r.Context())
	if err != nil {
		slog.Error("rule listing failed", "trace", trace.From(r.Context()), "err", err)
		httpx.WriteError(w, http.StatusServiceUnavailable, "permission rules unavailable")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"rules": rules})
}

func (h *RulesHandler) Reload(w http.ResponseWriter, r *http.Request) {
	h.Store.Reload(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
