package controllers

import (
	"net/http"

	"github.com/angelmondragon/tombamento-backend/api/responses"
	"github.com/angelmondragon/tombamento-backend/api/validators"
	"github.com/angelmondragon/tombamento-backend/internal/patterns"
	"github.com/angelmondragon/tombamento-backend/pkg/logger"
	"github.com/angelmondragon/tombamento-backend/pkg/pagination"
)

// ListLinks pages through confirmed links, newest first.
func ListLinks(svc patterns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), patterns.ListParams{
			Unit: validators.QueryString(r, "unit", 200),
			Params: pagination.Params{
				Limit:  limit,
				Cursor: validators.QueryString(r, "cursor", 512),
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
