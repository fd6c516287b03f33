package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evgeny-myasishchev/ledger.engine/config"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/accounts"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/api"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/app"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/auth"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/dal"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/ledger"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/lib-core-golang/diag"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/lib-core-golang/router"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/notify"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/version"
)

var logger = diag.CreateLogger()

const shutdownTimeout = 10 * time.Second

func main() {
	appCfg := config.MustLoadAppConfig()

	diag.SetupLoggingSystem(func(setup diag.LoggingSystemSetup) {
		setup.SetLogLevel(appCfg.Log.Level.Value())
	})

	injector := app.BootstrapServices(appCfg)
	ctx := context.Background()

	if err := injector(func(
		storage dal.Storage,
		authSvc auth.Service,
		accountsStore accounts.Store,
		engine ledger.Engine,
		webhook notify.Webhook,
	) error {
		defer storage.Close()
		if appCfg.Storage.SetupOnStart.Value() {
			if err := storage.Setup(ctx); err != nil {
				return err
			}
		}

		return notify.Run(ctx, webhook, func() error {
			server := router.NewServer(appCfg.Server.Port.Value(), func(r router.Router) {
				r.Use(router.MiddlewareFunc(diag.NewRequestIDMiddleware()))
				r.Use(router.MiddlewareFunc(diag.NewLogRequestsMiddleware()))
				api.SetupRoutes(r, authSvc, accountsStore, engine)
			})

			serverErr := make(chan error, 1)
			go func() {
				logger.
					WithData(diag.MsgData{"version": version.Version, "env": appCfg.Env.Name}).
					Info(ctx, "Starting %v on %v", version.AppName, server.Addr)
				serverErr <- server.ListenAndServe()
			}()

			signals := make(chan os.Signal, 1)
			signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-serverErr:
				if err != http.ErrServerClosed {
					return err
				}
				return nil
			case sig := <-signals:
				logger.Info(ctx, "Got %v, shutting down", sig)
			}

			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}); err != nil {
		logger.WithError(err).Error(ctx, "Server failed")
		os.Exit(1)
	}
}
