package controllers

import (
	"net/http"

	"github.com/angelmondragon/tombamento-backend/api/responses"
	"github.com/angelmondragon/tombamento-backend/api/validators"
	"github.com/angelmondragon/tombamento-backend/internal/matching"
	"github.com/angelmondragon/tombamento-backend/pkg/logger"
)

// SimilarityBody accepts any JSON scalar for either operand.
type SimilarityBody struct {
	A any `json:"a"`
	B any `json:"b"`
}

type TextBody struct {
	Text string `json:"text" validate:"max=2000"`
}

type AssetTagBody struct {
	AssetTag string `json:"asset_tag" validate:"max=100"`
}

func ToolSimilarity(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body SimilarityBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		score, err := matching.SimilarityOf(body.A, body.B)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]float64{"score": score})
	}
}

func ToolNormalizeText(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body TextBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"normalized": matching.NormalizeText(body.Text)})
	}
}

func ToolNormalizeAssetTag(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body AssetTagBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"normalized": matching.NormalizeAssetTag(body.AssetTag),
			"untagged":   matching.IsUntaggedAssetTag(body.AssetTag),
		})
	}
}

func ToolParseCondition(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body TextBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, matching.ParseConditionAndOrigin(body.Text))
	}
}
