package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"github.com/evgeny-myasishchev/ledger.engine/config"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/app"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/auth"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/dal"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/lib-core-golang/diag"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/types"
)

var logger = diag.CreateLogger()

var cliArgs struct {
	cmd      string
	username string
	password string
	role     string
	id       int64
}

func init() {
	flag.StringVar(&cliArgs.cmd, "cmd", "", "Command to run. Available commands: register, lock, unlock, delete, list")
	flag.StringVar(&cliArgs.username, "username", "", "Username of a new identity")
	flag.StringVar(&cliArgs.password, "password", "", "Password of a new identity")
	flag.StringVar(&cliArgs.role, "role", types.User.String(), "Role of a new identity: USER or ADMIN")
	flag.Int64Var(&cliArgs.id, "id", 0, "Identity id to lock, unlock or delete")

	flag.Parse()
}

func showHelpAndExit() {
	flag.PrintDefaults()
	os.Exit(1)
}

func printJSON(value interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func main() {
	if cliArgs.cmd == "" {
		showHelpAndExit()
	}

	appCfg := config.MustLoadAppConfig()

	diag.SetupLoggingSystem(func(setup diag.LoggingSystemSetup) {
		setup.SetLogLevel(appCfg.Log.Level.Value())
	})

	injector := app.BootstrapServices(appCfg)
	ctx := context.Background()
	identityID := types.IdentityID(cliArgs.id)

	var command func(authSvc auth.Service) error
	switch cliArgs.cmd {
	case "register":
		role, err := types.ParseRole(cliArgs.role)
		if err != nil || cliArgs.username == "" || cliArgs.password == "" {
			showHelpAndExit()
		}
		command = func(authSvc auth.Service) error {
			registration, err := authSvc.Register(ctx, cliArgs.username, cliArgs.password, role)
			if err != nil {
				return err
			}
			return printJSON(registration)
		}
	case "lock", "unlock":
		if identityID == 0 {
			showHelpAndExit()
		}
		command = func(authSvc auth.Service) error {
			identity, err := authSvc.SetLocked(ctx, identityID, cliArgs.cmd == "lock")
			if err != nil {
				return err
			}
			return printJSON(identity)
		}
	case "delete":
		if identityID == 0 {
			showHelpAndExit()
		}
		command = func(authSvc auth.Service) error {
			return authSvc.DeleteIdentity(ctx, identityID)
		}
	case "list":
		command = func(authSvc auth.Service) error {
			identities, err := authSvc.ListIdentities(ctx)
			if err != nil {
				return err
			}
			return printJSON(identities)
		}
	default:
		showHelpAndExit()
	}

	if err := injector(func(storage dal.Storage, authSvc auth.Service) error {
		defer storage.Close()
		return command(authSvc)
	}); err != nil {
		logger.WithError(err).Error(ctx, "Failed to %v", cliArgs.cmd)
		os.Exit(1)
	}
}
