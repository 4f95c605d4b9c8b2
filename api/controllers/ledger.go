package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/tombamento-backend/api/responses"
	"github.com/angelmondragon/tombamento-backend/internal/ledger"
	"github.com/angelmondragon/tombamento-backend/pkg/logger"
)

// LedgerRefresh re-imports the snapshot from its configured source.
func LedgerRefresh(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.Refresh(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func LedgerLookup(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, err := svc.Get(r.Context(), chi.URLParam(r, "assetTag"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ledger.FromModel(*record))
	}
}
