package api

import (
	"github.com/pkg/errors"

	"github.com/evgeny-myasishchev/ledger.engine/pkg/accounts"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/auth"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/ledger"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/lib-core-golang/router"
)

// mapError converts domain errors to http errors. Unknown errors
// are returned as is and responded with a generic 500
func mapError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrSameAccount),
		errors.Is(err, auth.ErrInvalidUsername),
		errors.Is(err, auth.ErrInvalidPassword):
		return router.BadRequestError(err.Error())
	case errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, accounts.ErrNotFound),
		errors.Is(err, auth.ErrIdentityNotFound):
		return router.ResourceNotFoundError(err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, auth.ErrUsernameTaken):
		return router.ConflictError(err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		return router.UnauthorizedError(err.Error())
	case errors.Is(err, auth.ErrLocked):
		return router.ForbiddenError(err.Error())
	}
	return err
}
