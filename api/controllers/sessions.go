package controllers

import (
	"net/http"
	"time"

	"github.com/angelmondragon/tombamento-backend/api/middleware"
	"github.com/angelmondragon/tombamento-backend/api/responses"
	"github.com/angelmondragon/tombamento-backend/api/validators"
	"github.com/angelmondragon/tombamento-backend/internal/reconciliation"
	pkgerrors "github.com/angelmondragon/tombamento-backend/pkg/errors"
	"github.com/angelmondragon/tombamento-backend/pkg/logger"
)

// StartSession opens a reconciliation session. The operator defaults to the
// X-Operator header.
func StartSession(svc reconciliation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciliation service unavailable"))
			return
		}

		var input reconciliation.StartSessionInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.Operator == "" {
			input.Operator = middleware.OperatorFromContext(r.Context())
		}

		session, err := svc.StartSession(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

func EndSession(svc reconciliation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := validators.ParseUUIDParam(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.EndSession(r.Context(), sessionID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"session_id": sessionID, "ended": true})
	}
}

// SuggestCandidates ranks ledger candidates for one untagged record.
func SuggestCandidates(svc reconciliation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := validators.ParseUUIDParam(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		inventoryID, err := validators.ParseUUIDParam(r, "inventoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		suggestion, err := svc.Suggest(r.Context(), sessionID, inventoryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, suggestion)
	}
}

// ProposeLink reserves a ledger tag for a record within the session.
func ProposeLink(svc reconciliation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := validators.ParseUUIDParam(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		inventoryID, err := validators.ParseUUIDParam(r, "inventoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var input reconciliation.ProposeInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.SessionID = sessionID
		input.InventoryID = inventoryID

		pending, err := svc.Propose(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, pending)
	}
}

// ConfirmLink assigns the tag and records the pattern.
func ConfirmLink(svc reconciliation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := validators.ParseUUIDParam(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		inventoryID, err := validators.ParseUUIDParam(r, "inventoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var input reconciliation.ConfirmInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.SessionID = sessionID
		input.InventoryID = inventoryID
		input.ConfirmedAt = time.Now().UTC()
		if input.ConfirmedBy == "" {
			input.ConfirmedBy = middleware.OperatorFromContext(r.Context())
		}

		result, err := svc.Confirm(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
