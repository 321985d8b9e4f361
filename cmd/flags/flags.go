package flags

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/ruteri/identity-gateway/api"
	"github.com/ruteri/identity-gateway/common"
	"github.com/ruteri/identity-gateway/database"
	"github.com/ruteri/identity-gateway/interfaces"
	"github.com/ruteri/identity-gateway/registry"
	"github.com/ruteri/identity-gateway/tables"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String(LogServiceFlag.Name)

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger) *api.HTTPServerConfig {
	return &api.HTTPServerConfig{
		ListenAddr:               cCtx.String(ListenAddrFlag.Name),
		MetricsAddr:              cCtx.String(MetricsAddrFlag.Name),
		Log:                      logger,
		EnablePprof:              cCtx.Bool(PprofFlag.Name),
		DrainDuration:            time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

// Stores holds the persistence backends selected by --db-driver.
type Stores struct {
	Registry interfaces.UserRegistry
	Tables   interfaces.TableStore
	Close    func() error
}

// OpenStores opens the user registry and the table store.
func OpenStores(cCtx *cli.Context, logger *slog.Logger) (*Stores, error) {
	driver := cCtx.String(DBDriverFlag.Name)
	if driver == "memory" {
		logger.Warn("Using in-memory stores, state is lost on restart")
		return &Stores{
			Registry: registry.NewMemoryRegistry(),
			Tables:   tables.NewMemoryStore(),
			Close:    func() error { return nil },
		}, nil
	}

	dsn := cCtx.String(DBDSNFlag.Name)
	if dsn == "" {
		return nil, fmt.Errorf("--%s is required for --%s=%s", DBDSNFlag.Name, DBDriverFlag.Name, driver)
	}

	ctx, cancel := context.WithTimeout(cCtx.Context, 30*time.Second)
	defer cancel()

	db, err := database.Open(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}

	logger.Info("Database opened", "driver", driver)
	return &Stores{
		Registry: registry.NewSQLRegistry(db, logger),
		Tables:   tables.NewSQLStore(db, logger),
		Close:    db.Close,
	}, nil
}

var ListenAddrFlag = &cli.StringFlag{
	Name:    "listen-addr",
	Value:   "127.0.0.1:8080",
	Usage:   "address to listen on for API",
	EnvVars: []string{"GATEWAY_LISTEN_ADDR"},
}

var HubURLFlag = &cli.StringFlag{
	Name:     "hub-url",
	Required: true,
	Usage:    "service URL that tokens must name in their hub claim",
	EnvVars:  []string{"GATEWAY_HUB_URL"},
}

var TrustedOriginFlag = &cli.StringFlag{
	Name:    "trusted-origin",
	Usage:   "frontend origin whose login requests are validated permissively",
	EnvVars: []string{"GATEWAY_TRUSTED_ORIGIN"},
}

var DriversConfigFlag = &cli.StringFlag{
	Name:    "drivers-config",
	Value:   "drivers.yaml",
	Usage:   "YAML file describing the storage driver catalog",
	EnvVars: []string{"GATEWAY_DRIVERS_CONFIG"},
}

var DBDriverFlag = &cli.StringFlag{
	Name:    "db-driver",
	Value:   database.DialectSQLite,
	Usage:   "user registry and table store backend: sqlite, postgres or memory",
	EnvVars: []string{"GATEWAY_DB_DRIVER"},
}

var DBDSNFlag = &cli.StringFlag{
	Name:    "db-dsn",
	Value:   "data/gateway.db",
	Usage:   "database file path (sqlite) or connection string (postgres)",
	EnvVars: []string{"GATEWAY_DB_DSN"},
}

var AppKeyFlag = &cli.StringFlag{
	Name:    "app-key",
	Usage:   "shared secret for the app db API, the API rejects every request when unset",
	EnvVars: []string{"GATEWAY_APP_KEY"},
}

var TokenLeewayFlag = &cli.DurationFlag{
	Name:  "token-leeway",
	Value: 30 * time.Second,
	Usage: "allowed clock skew when checking token timestamps",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}
var LogServiceFlag = &cli.StringFlag{
	Name:  "log-service",
	Value: common.PackageName,
	Usage: "add 'service' tag to logs",
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	LogServiceFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}
