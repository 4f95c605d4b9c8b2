package controllers

import (
	"net/http"

	"go.uber.org/multierr"

	"github.com/angelmondragon/tombamento-backend/api/middleware"
	"github.com/angelmondragon/tombamento-backend/api/responses"
	"github.com/angelmondragon/tombamento-backend/api/validators"
	"github.com/angelmondragon/tombamento-backend/internal/matching"
	"github.com/angelmondragon/tombamento-backend/internal/reconciliation"
	pkgerrors "github.com/angelmondragon/tombamento-backend/pkg/errors"
	"github.com/angelmondragon/tombamento-backend/pkg/logger"
)

// BatchRowBody is one pasted row sent as JSON.
type BatchRowBody struct {
	Description string `json:"description" validate:"required,max=500"`
	AssetTag    string `json:"asset_tag" validate:"max=50"`
	Location    string `json:"location" validate:"max=200"`
	Condition   string `json:"condition" validate:"max=200"`
}

// BatchMatchBody carries rows either as JSON or as the raw text copied from
// a spreadsheet, never both.
type BatchMatchBody struct {
	Unit        string         `json:"unit" validate:"required,max=200"`
	ItemType    string         `json:"item_type" validate:"max=100"`
	Rows        []BatchRowBody `json:"rows" validate:"required_without=Text,excluded_with=Text,dive"`
	Text        string         `json:"text" validate:"required_without=Rows"`
	Commit      bool           `json:"commit"`
	ConfirmedBy string         `json:"confirmed_by" validate:"max=200"`
}

func BatchMatch(svc reconciliation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body BatchMatchBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, skipped, err := batchRows(body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		confirmedBy := body.ConfirmedBy
		if confirmedBy == "" {
			confirmedBy = middleware.OperatorFromContext(r.Context())
		}

		outcome, err := svc.MatchBatch(r.Context(), reconciliation.BatchInput{
			Unit:        body.Unit,
			ItemType:    body.ItemType,
			Rows:        rows,
			Commit:      body.Commit,
			ConfirmedBy: confirmedBy,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		outcome.Skipped = skipped
		responses.WriteSuccess(w, outcome)
	}
}

// batchRows cleans the body's rows the same way for both forms. Rows
// without a description are skipped and reported; the request fails only
// when none is left.
func batchRows(body BatchMatchBody) ([]matching.PastedRow, []string, error) {
	var (
		rows []matching.PastedRow
		err  error
	)
	if body.Text != "" {
		rows, err = reconciliation.ParsePastedRows(body.Text)
	} else {
		in := make([]matching.PastedRow, len(body.Rows))
		for i, row := range body.Rows {
			in[i] = matching.PastedRow{
				Description: row.Description,
				AssetTag:    row.AssetTag,
				Location:    row.Location,
				Condition:   row.Condition,
			}
		}
		rows, err = reconciliation.CleanPastedRows(in)
	}

	var skipped []string
	for _, lineErr := range multierr.Errors(err) {
		skipped = append(skipped, lineErr.Error())
	}
	if len(rows) == 0 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "no row has a description").
			WithDetails(map[string]any{"lines": skipped})
	}
	return rows, skipped, nil
}
