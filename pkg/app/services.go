package app

import (
	"database/sql"

	"go.uber.org/dig"

	"github.com/evgeny-myasishchev/ledger.engine/config"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/accounts"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/auth"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/dal"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/ledger"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/notify"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/txlog"
)

// Injector is a function that will inject desired services
// to a target function
type Injector func(function interface{}) error

// BootstrapServices setup di container with all app services
func BootstrapServices(appCfg *config.AppConfig) Injector {
	c := dig.New()

	provide := func(constructor interface{}) {
		if err := c.Provide(constructor); err != nil {
			panic(err)
		}
	}

	provide(func() (*sql.DB, error) {
		return dal.Open(appCfg.Storage.Driver.Value(), appCfg.Storage.DSN.Value())
	})

	provide(func(db *sql.DB) (dal.Storage, error) {
		dialect, err := dal.DialectFor(appCfg.Storage.Driver.Value())
		if err != nil {
			return nil, err
		}
		return dal.NewSQLStorage(dal.WithSQLDb(db), dal.WithDialect(dialect))
	})

	provide(func(storage dal.Storage) accounts.Store {
		return accounts.NewStore(storage)
	})

	provide(func(storage dal.Storage) txlog.Log {
		return txlog.NewLog(storage)
	})

	provide(func(storage dal.Storage) auth.Guard {
		return auth.NewGuard(storage, auth.WithMaxFailedAttempts(appCfg.Auth.MaxFailedAttempts.Value()))
	})

	provide(func() auth.Credentials {
		return auth.NewBcryptCredentials(appCfg.Auth.BcryptCost.Value())
	})

	provide(func(
		storage dal.Storage,
		accountsStore accounts.Store,
		guard auth.Guard,
		credentials auth.Credentials,
	) auth.Service {
		return auth.NewService(storage,
			auth.WithAccounts(accountsStore),
			auth.WithGuard(guard),
			auth.WithCredentials(credentials),
		)
	})

	provide(func() notify.Webhook {
		return notify.NewWebhook(
			appCfg.Notifications.WebhookURL.Value(),
			notify.WithQueueSize(appCfg.Notifications.QueueSize.Value()),
		)
	})

	provide(func(
		storage dal.Storage,
		accountsStore accounts.Store,
		log txlog.Log,
		webhook notify.Webhook,
	) ledger.Engine {
		return ledger.NewEngine(storage, accountsStore, log, ledger.WithNotifier(webhook))
	})

	return func(function interface{}) error {
		return c.Invoke(function)
	}
}
