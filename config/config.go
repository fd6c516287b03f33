package config

import (
	"github.com/evgeny-myasishchev/ledger.engine/pkg/lib-core-golang/config"
	"github.com/evgeny-myasishchev/ledger.engine/pkg/version"
)

var appEnv = config.NewAppEnv(version.AppName)
var configBuilder = config.NewBuilder(appEnv)

var localParams = configBuilder.NewParamsBuilder(configBuilder.WithLocalSource())

// Do not change vars below at runtime
var (
	LogLevel = localParams.NewParam("log/level").String()

	StorageDriver = localParams.NewParam("storage/driver").String()
	StorageDSN    = localParams.NewParam("storage/dsn").String()

	// StorageSetupOnStart makes the api server run the idempotent schema setup
	StorageSetupOnStart = localParams.NewParam("storage/setupOnStart").Bool()

	AuthMaxFailedAttempts = localParams.NewParam("auth/maxFailedAttempts").Int()
	AuthBcryptCost        = localParams.NewParam("auth/bcryptCost").Int()

	ServerPort = localParams.NewParam("server/port").Int()

	NotificationsWebhookURL = localParams.NewParam("notifications/webhookURL").String()
	NotificationsQueueSize  = localParams.NewParam("notifications/queueSize").Int()
)

// Log represents logger specific options
type Log struct {
	Level config.StringVal
}

// Storage represents storage settings
type Storage struct {
	Driver       config.StringVal
	DSN          config.StringVal
	SetupOnStart config.BoolVal
}

// Auth represents authentication settings
type Auth struct {
	MaxFailedAttempts config.IntVal
	BcryptCost        config.IntVal
}

// Server represents http server settings
type Server struct {
	Port config.IntVal
}

// Notifications represents post-commit notifications settings
// Notifications are disabled if WebhookURL is empty
type Notifications struct {
	WebhookURL config.StringVal
	QueueSize  config.IntVal
}

// AppConfig is a toplevel config structure
type AppConfig struct {
	Env           config.AppEnv
	Log           Log
	Storage       Storage
	Auth          Auth
	Server        Server
	Notifications Notifications
}

// LoadAppConfig will load and initialize app config structure
func LoadAppConfig() (*AppConfig, error) {
	cfg, err := configBuilder.LoadConfig()
	if err != nil {
		return nil, err
	}

	appCfg := AppConfig{
		Env: configBuilder.AppEnv(),
		Log: Log{
			Level: cfg.StringParam(LogLevel),
		},
		Storage: Storage{
			Driver:       cfg.StringParam(StorageDriver),
			DSN:          cfg.StringParam(StorageDSN),
			SetupOnStart: cfg.BoolParam(StorageSetupOnStart),
		},
		Auth: Auth{
			MaxFailedAttempts: cfg.IntParam(AuthMaxFailedAttempts),
			BcryptCost:        cfg.IntParam(AuthBcryptCost),
		},
		Server: Server{
			Port: cfg.IntParam(ServerPort),
		},
		Notifications: Notifications{
			WebhookURL: cfg.StringParam(NotificationsWebhookURL),
			QueueSize:  cfg.IntParam(NotificationsQueueSize),
		},
	}

	return &appCfg, nil
}

// MustLoadAppConfig is the same as LoadAppConfig but panics on error
func MustLoadAppConfig() *AppConfig {
	appCfg, err := LoadAppConfig()
	if err != nil {
		panic(err)
	}
	return appCfg
}
