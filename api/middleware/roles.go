package middleware

import (
	"net/http"

	"github.com/jerseyleague/shop-backend/api/responses"
	"github.com/jerseyleague/shop-backend/pkg/enums"
	pkgerrors "github.com/jerseyleague/shop-backend/pkg/errors"
	"github.com/jerseyleague/shop-backend/pkg/logger"
)

// RequireRole mounts after Auth. A request that never went through Auth is
// treated as unauthenticated rather than forbidden.
func RequireRole(role enums.Role, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			switch {
			case !ok:
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			case !id.Has(role):
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role").
					WithDetails(map[string]string{"required_role": role.String()}))
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
