package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/evgeny-myasishchev/ledger.engine/config"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/app"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/dal"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/ledger"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/lib-core-golang/diag"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/notify"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/types"
)

var logger = diag.CreateLogger()

var cliArgs struct {
	cmd    string
	from   int64
	to     int64
	amount string
	limit  int
}

func init() {
	flag.StringVar(&cliArgs.cmd, "cmd", "", "Command to run. Available commands: deposit, withdraw, transfer, history")
	flag.Int64Var(&cliArgs.from, "account", 0, "Account id to operate on (source account for transfer)")
	flag.Int64Var(&cliArgs.to, "to", 0, "Destination account id of a transfer")
	flag.StringVar(&cliArgs.amount, "amount", "", "Positive decimal amount")
	flag.IntVar(&cliArgs.limit, "limit", 0, "Max number of history entries. 0 - all")

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

func mustParseAmount() decimal.Decimal {
	amount, err := decimal.NewFromString(cliArgs.amount)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid amount: %v\n", cliArgs.amount)
		showHelpAndExit()
	}
	return amount
}

func main() {
	if cliArgs.cmd == "" || cliArgs.from == 0 {
		showHelpAndExit()
	}

	appCfg := config.MustLoadAppConfig()

	diag.SetupLoggingSystem(func(setup diag.LoggingSystemSetup) {
		setup.SetLogLevel(appCfg.Log.Level.Value())
	})

	injector := app.BootstrapServices(appCfg)
	ctx := context.Background()
	account := types.AccountID(cliArgs.from)

	var command func(engine ledger.Engine) error
	switch cliArgs.cmd {
	case "deposit":
		amount := mustParseAmount()
		command = func(engine ledger.Engine) error {
			balance, err := engine.Deposit(ctx, account, amount)
			if err != nil {
				return err
			}
			return printJSON(map[string]interface{}{"accountId": account, "balance": balance})
		}
	case "withdraw":
		amount := mustParseAmount()
		command = func(engine ledger.Engine) error {
			balance, err := engine.Withdraw(ctx, account, amount)
			if err != nil {
				return err
			}
			return printJSON(map[string]interface{}{"accountId": account, "balance": balance})
		}
	case "transfer":
		if cliArgs.to == 0 {
			showHelpAndExit()
		}
		amount := mustParseAmount()
		command = func(engine ledger.Engine) error {
			result, err := engine.Transfer(ctx, account, types.AccountID(cliArgs.to), amount)
			if err != nil {
				return err
			}
			return printJSON(result)
		}
	case "history":
		command = func(engine ledger.Engine) error {
			entries, err := engine.History(ctx, account, cliArgs.limit)
			if err != nil {
				return err
			}
			return printJSON(entries)
		}
	default:
		showHelpAndExit()
	}

	if err := injector(func(storage dal.Storage, webhook notify.Webhook, engine ledger.Engine) error {
		defer storage.Close()
		return notify.Run(ctx, webhook, func() error {
			return command(engine)
		})
	}); err != nil {
		logger.WithError(err).Error(ctx, "Failed to %v", cliArgs.cmd)
		os.Exit(1)
	}
}
