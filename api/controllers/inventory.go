package controllers

import (
	"net/http"

	"github.com/angelmondragon/tombamento-backend/api/responses"
	"github.com/angelmondragon/tombamento-backend/api/validators"
	"github.com/angelmondragon/tombamento-backend/internal/inventory"
	"github.com/angelmondragon/tombamento-backend/pkg/logger"
)

// ListUntagged returns the unit's records still waiting for an asset tag.
func ListUntagged(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := svc.ListUntagged(r.Context(),
			validators.QueryString(r, "unit", 200),
			validators.QueryString(r, "item_type", 100),
		)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items := make([]inventory.RecordDTO, len(records))
		for i, record := range records {
			items[i] = inventory.FromModel(record)
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

// TransferRecord moves a record to another unit and location.
func TransferRecord(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "inventoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input inventory.TransferInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.Transfer(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, inventory.FromModel(*record))
	}
}
