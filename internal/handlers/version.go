package handlers

import (
	"net/http"

	"github.com/arabot777/idea2product-guard/internal/httpx"
	"github.com/arabot777/idea2product-guard/internal/version"
)

func Version(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, version.Get())
}
