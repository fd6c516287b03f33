package api

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/evgeny-myasishchev/ledger.engine/pkg/accounts"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/auth"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/ledger"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/lib-core-golang/diag"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/lib-core-golang/router"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/types"
)

var logger = diag.CreateLogger()

type registerPayload struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=72"`
}

type amountPayload struct {
	Amount string `json:"amount" validate:"required"`
}

type transferPayload struct {
	ToAccountID int64  `json:"toAccountId" validate:"required"`
	Amount      string `json:"amount" validate:"required"`
}

type lockPayload struct {
	Locked *bool `json:"locked" validate:"required"`
}

type balanceResponse struct {
	AccountID types.AccountID `json:"accountId"`
	Balance   decimal.Decimal `json:"balance"`
}

type transferResponse struct {
	FromAccountID types.AccountID `json:"fromAccountId"`
	ToAccountID   types.AccountID `json:"toAccountId"`
	*ledger.TransferResult
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, router.BadRequestError("ValidationFailed: amount is invalid")
	}
	return amount, nil
}

type routes struct {
	auth     auth.Service
	accounts accounts.Store
	engine   ledger.Engine
}

func (r *routes) ownAccount(req *http.Request) (*accounts.Account, error) {
	identity := identityValue(req.Context())
	account, err := r.accounts.GetByOwner(req.Context(), identity.ID)
	if err != nil {
		return nil, mapError(err)
	}
	return account, nil
}

func (r *routes) ping(w http.ResponseWriter, req *http.Request, h router.HandlerToolkit) error {
	return h.WriteJSON(map[string]bool{"ok": true})
}

func (r *routes) register(w http.ResponseWriter, req *http.Request, h router.HandlerToolkit) error {
	var payload registerPayload
	if err := h.BindPayload(&payload); err != nil {
		return err
	}
	registration, err := r.auth.Register(req.Context(), payload.Username, payload.Password, types.User)
	if err != nil {
		return mapError(err)
	}
	return h.WriteJSON(registration, h.WithStatus(http.StatusCreated))
}

func (r *routes) getAccount(w http.ResponseWriter, req *http.Request, h router.HandlerToolkit) error {
	account, err := r.ownAccount(req)
	if err != nil {
		return err
	}
	return h.WriteJSON(account)
}

type balanceOperation func(req *http.Request, accountID types.AccountID, amount decimal.Decimal) (decimal.Decimal, error)

func (r *routes) balanceHandler(op balanceOperation) router.ToolkitHandlerFunc {
	return func(w http.ResponseWriter, req *http.Request, h router.HandlerToolkit) error {
		var payload amountPayload
		if err := h.BindPayload(&payload); err != nil {
			return err
		}
		amount, err := parseAmount(payload.Amount)
		if err != nil {
			return err
		}
		account, err := r.ownAccount(req)
		if err != nil {
			return err
		}
		balance, err := op(req, account.ID, amount)
		if err != nil {
			return mapError(err)
		}
		return h.WriteJSON(balanceResponse{AccountID: account.ID, Balance: balance})
	}
}

func (r *routes) deposit(req *http.Request, accountID types.AccountID, amount decimal.Decimal) (decimal.Decimal, error) {
	return r.engine.Deposit(req.Context(), accountID, amount)
}

func (r *routes) withdraw(req *http.Request, accountID types.AccountID, amount decimal.Decimal) (decimal.Decimal, error) {
	return r.engine.Withdraw(req.Context(), accountID, amount)
}

func (r *routes) transfer(w http.ResponseWriter, req *http.Request, h router.HandlerToolkit) error {
	var payload transferPayload
	if err := h.BindPayload(&payload); err != nil {
		return err
	}
	amount, err := parseAmount(payload.Amount)
	if err != nil {
		return err
	}
	account, err := r.ownAccount(req)
	if err != nil {
		return err
	}
	toID := types.AccountID(payload.ToAccountID)
	result, err := r.engine.Transfer(req.Context(), account.ID, toID, amount)
	if err != nil {
		return mapError(err)
	}
	return h.WriteJSON(transferResponse{
		FromAccountID:  account.ID,
		ToAccountID:    toID,
		TransferResult: result,
	})
}

func (r *routes) history(w http.ResponseWriter, req *http.Request, h router.HandlerToolkit) error {
	var params struct {
		Limit int `validate:"min=0,max=1000"`
	}
	if err := h.BindParams().
		QueryParam("limit").Default("0").Int(&params.Limit).
		Validate(&params); err != nil {
		return err
	}
	account, err := r.ownAccount(req)
	if err != nil {
		return err
	}
	entries, err := r.engine.History(req.Context(), account.ID, params.Limit)
	if err != nil {
		return mapError(err)
	}
	return h.WriteJSON(entries)
}

func (r *routes) listIdentities(w http.ResponseWriter, req *http.Request, h router.HandlerToolkit) error {
	identities, err := r.auth.ListIdentities(req.Context())
	if err != nil {
		return err
	}
	return h.WriteJSON(identities)
}

func bindIdentityID(h router.HandlerToolkit) (types.IdentityID, error) {
	var params struct {
		ID int64 `validate:"required"`
	}
	if err := h.BindParams().PathParam("id").Int64(&params.ID).Validate(&params); err != nil {
		return 0, err
	}
	return types.IdentityID(params.ID), nil
}

func notSelf(req *http.Request, id types.IdentityID) error {
	if identityValue(req.Context()).ID == id {
		return router.ForbiddenError("Can not change own identity")
	}
	return nil
}

func (r *routes) setLocked(w http.ResponseWriter, req *http.Request, h router.HandlerToolkit) error {
	id, err := bindIdentityID(h)
	if err != nil {
		return err
	}
	var payload lockPayload
	if err := h.BindPayload(&payload); err != nil {
		return err
	}
	if err := notSelf(req, id); err != nil {
		return err
	}
	identity, err := r.auth.SetLocked(req.Context(), id, *payload.Locked)
	if err != nil {
		return mapError(err)
	}
	return h.WriteJSON(identity)
}

func (r *routes) deleteIdentity(w http.ResponseWriter, req *http.Request, h router.HandlerToolkit) error {
	id, err := bindIdentityID(h)
	if err != nil {
		return err
	}
	if err := notSelf(req, id); err != nil {
		return err
	}
	if err := r.auth.DeleteIdentity(req.Context(), id); err != nil {
		return mapError(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// SetupRoutes registers ledger routes
func SetupRoutes(appRouter router.Router, authSvc auth.Service, accountsStore accounts.Store, engine ledger.Engine) {
	r := &routes{auth: authSvc, accounts: accountsStore, engine: engine}
	handle := func(method string, pattern string, handler router.ToolkitHandlerFunc, roles ...types.Role) {
		appRouter.Handle(method, pattern, authenticated(authSvc, handler, roles...))
	}

	appRouter.Handle("GET", "/v1/healthcheck/ping", router.ToolkitHandlerFunc(r.ping))
	appRouter.Handle("POST", "/v1/identities", router.ToolkitHandlerFunc(r.register))

	handle("GET", "/v1/account", r.getAccount)
	handle("POST", "/v1/account/deposits", r.balanceHandler(r.deposit))
	handle("POST", "/v1/account/withdrawals", r.balanceHandler(r.withdraw))
	handle("POST", "/v1/account/transfers", r.transfer)
	handle("GET", "/v1/account/transactions", r.history)

	handle("GET", "/v1/identities", r.listIdentities, types.Admin)
	handle("PUT", "/v1/identities/:id/lock", r.setLocked, types.Admin)
	handle("DELETE", "/v1/identities/:id", r.deleteIdentity, types.Admin)
}
