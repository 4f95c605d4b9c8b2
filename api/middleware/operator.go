package middleware

import (
	"net/http"

	"github.com/angelmondragon/tombamento-backend/api/validators"
	"github.com/angelmondragon/tombamento-backend/pkg/logger"
)

// OperatorHeader names the person performing the audit. It is recorded on
// confirmed links and scopes idempotency keys.
const OperatorHeader = "X-Operator"

const maxOperatorLen = 200

func Operator(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			operator := validators.SanitizeString(r.Header.Get(OperatorHeader), maxOperatorLen)
			if operator == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := WithOperator(r.Context(), operator)
			if logg != nil {
				ctx = logg.WithOperator(ctx, operator)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
