package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/ruteri/identity-gateway/auth"
	"github.com/ruteri/identity-gateway/cmd/flags"
	"github.com/ruteri/identity-gateway/gateway"
	"github.com/ruteri/identity-gateway/httpserver"
	"github.com/ruteri/identity-gateway/provisioner"
	"github.com/ruteri/identity-gateway/storage"
	"github.com/ruteri/identity-gateway/tables"
)

func main() {
	app := &cli.App{
		Name:  "gateway",
		Usage: "Serve the identity gateway and app db APIs",
		Flags: append([]cli.Flag{
			flags.ListenAddrFlag,
			flags.HubURLFlag,
			flags.TrustedOriginFlag,
			flags.DriversConfigFlag,
			flags.DBDriverFlag,
			flags.DBDSNFlag,
			flags.AppKeyFlag,
			flags.TokenLeewayFlag,
		}, flags.CommonFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			catalog, err := storage.LoadCatalog(cCtx.String(flags.DriversConfigFlag.Name), logger)
			if err != nil {
				logger.Error("Failed to load driver catalog", "err", err)
				return err
			}
			for _, id := range catalog.Unavailable(cCtx.Context) {
				logger.Warn("Storage driver is not reachable", "driver", id)
			}

			stores, err := flags.OpenStores(cCtx, logger)
			if err != nil {
				logger.Error("Failed to open stores", "err", err)
				return err
			}
			defer stores.Close()

			appKey := cCtx.String(flags.AppKeyFlag.Name)
			if appKey == "" {
				logger.Warn("No app key configured, the app db API rejects every request")
			}

			validator := auth.NewValidator(cCtx.String(flags.HubURLFlag.Name), auth.WithLeeway(cCtx.Duration(flags.TokenLeewayFlag.Name)))
			prov := provisioner.New(catalog, stores.Registry, logger)
			gw := gateway.New(validator, stores.Registry, catalog, prov, logger)
			gate := tables.NewGate(appKey, stores.Tables, logger)

			handler := httpserver.NewHandler(gw, gate, cCtx.String(flags.TrustedOriginFlag.Name), logger)
			server, err := httpserver.New(flags.ConfigureServer(cCtx, logger), handler)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			logger.Info("Starting server", "drivers", len(catalog.Info()))
			server.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
