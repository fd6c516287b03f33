package api

import (
	"context"
	"net/http"

	"github.com/evgeny-myasishchev/ledger.engine/pkg/auth"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/lib-core-golang/diag"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/lib-core-golang/router"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/types"
)

type contextKey string

const identityKey contextKey = "identity"

func contextWithIdentity(ctx context.Context, identity *auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// identityValue returns an identity authenticated by the request
func identityValue(ctx context.Context) *auth.Identity {
	identity, _ := ctx.Value(identityKey).(*auth.Identity)
	return identity
}

// authenticated wraps the handler with HTTP Basic authentication.
// Every request goes through the login so failed attempts and locks apply
func authenticated(authSvc auth.Service, next router.ToolkitHandlerFunc, roles ...types.Role) router.ToolkitHandlerFunc {
	return func(w http.ResponseWriter, req *http.Request, h router.HandlerToolkit) error {
		username, password, ok := req.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="ledger"`)
			return router.UnauthorizedError("Credentials are required")
		}
		identity, err := authSvc.Login(req.Context(), username, password)
		if err != nil {
			if err == auth.ErrInvalidCredentials {
				w.Header().Set("WWW-Authenticate", `Basic realm="ledger"`)
			}
			return mapError(err)
		}
		if len(roles) > 0 && !hasRole(identity, roles) {
			logger.WithData(diag.MsgData{
				"identityID": identity.ID,
				"role":       identity.Role,
			}).Info(req.Context(), "Access denied")
			return router.ForbiddenError("Access denied")
		}
		return next(w, req.WithContext(contextWithIdentity(req.Context(), identity)), h)
	}
}

func hasRole(identity *auth.Identity, roles []types.Role) bool {
	for _, role := range roles {
		if identity.Role == role {
			return true
		}
	}
	return false
}
