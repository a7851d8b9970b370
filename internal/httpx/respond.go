package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ariefcatur/koperasi-orders.git/internal/catalog"
	"github.com/ariefcatur/koperasi-orders.git/internal/orders"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeErr memetakan taxonomy error workflow ke status code; error tak
// dikenal jadi 500 tanpa membocorkan detail internal.
func writeErr(w http.ResponseWriter, err error) {
	if kind, ok := orders.KindOf(err); ok {
		switch kind {
		case orders.KindValidation:
			writeError(w, http.StatusBadRequest, err.Error())
		case orders.KindNotFound:
			writeError(w, http.StatusNotFound, err.Error())
		case orders.KindConflict:
			writeError(w, http.StatusConflict, err.Error())
		case orders.KindState:
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		}
		return
	}
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, "server error")
}
