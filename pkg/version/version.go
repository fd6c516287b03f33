package version

// Version is the app-global version string, which should be substituted with a
// real value during build
var Version = "UNKNOWN"

// AppName is a name of a service. Config env overrides and log package
// names are resolved relative to it
// should be in sync with Makefile
var AppName = "ledger-engine"

// GitHash injected build time (see Makefile)
var GitHash = "TBD"

// UserAgent returns a value for outgoing requests (e.g webhooks)
func UserAgent() string {
	return AppName + "/" + Version + " (" + GitHash + ")"
}
