// cmd/main.go
//
// Entry point for the core simulator. Responsibilities:
//   - Parse the config flag via the root cobra command.
//   - Initialise a temporary logger so config loading has a logger.
//   - Load and validate configuration from YAML.
//   - Construct the App (wires all internal components).
//   - Start the App and block until SIGINT/SIGTERM.
//   - Trigger a best-effort graceful shutdown on signal.
package main

import (
	stdctx "context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/free5gc/coresim/internal/logger"
	"github.com/free5gc/coresim/pkg/app"
	"github.com/free5gc/coresim/pkg/factory"
)

var rootCmd = &cobra.Command{
	Use:     "coresim",
	Short:   "Simulated 5G core control plane.",
	Long:    "coresim runs the simulated 5G core network functions (AMF, SMF, UPF, NRF, NSSF, PCF, UDM/AUSF) behind one SBI endpoint.",
	Example: "coresim -c config/coresimcfg.yaml",
	Run:     runFunc,
}

func init() {
	rootCmd.Flags().StringP("config", "c", factory.CoresimDefaultConfigPath, "path to coresim config file (YAML)")
}

func runFunc(cmd *cobra.Command, args []string) {
	configPath, flagError := cmd.Flags().GetString("config")
	if flagError != nil {
		panic(flagError)
	}

	// Temporary logger initialisation with a safe default so that
	// configuration loading and validation can use logger.CfgLog /
	// logger.MainLog. NewApp() will call InitLog again with the level from
	// the config, which is safe.
	_ = logger.InitLog("info", false)

	logger.MainLog.Infof("coresim starting, configPath=%s", configPath)

	config, readError := factory.ReadConfig(configPath)
	if readError != nil {
		logger.MainLog.Errorf("failed to read config: %v", readError)
		os.Exit(1)
	}

	// Root context for Start; Stop will create its own timeout context.
	rootContext, rootCancel := stdctx.WithCancel(stdctx.Background())
	defer rootCancel()

	coresimApp, appError := app.NewApp(rootContext, config)
	if appError != nil {
		logger.MainLog.Errorf("failed to create coresim app: %v", appError)
		os.Exit(1)
	}

	if startError := coresimApp.Start(rootContext); startError != nil {
		logger.MainLog.Errorf("failed to start coresim: %v", startError)
		os.Exit(1)
	}

	// Wait for OS signals (Ctrl-C / kill).
	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)

	receivedSignal := <-signalChannel
	logger.MainLog.Infof("received signal=%s, initiating shutdown", receivedSignal.String())

	// Let any Start()-spawned logic that honours the root context know we
	// are shutting down.
	rootCancel()

	// Give the App a bounded time window to finish cleanup. If it cannot
	// complete in time, we log a warning and exit anyway.
	shutdownTimeout := 10 * time.Second
	shutdownContext, shutdownCancel := stdctx.WithTimeout(stdctx.Background(), shutdownTimeout)
	defer shutdownCancel()

	if stopError := coresimApp.Stop(shutdownContext); stopError != nil {
		logger.MainLog.Warnf("coresim shutdown encountered error: %v", stopError)
	} else {
		logger.MainLog.Infof("coresim shutdown completed within %s", shutdownTimeout)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
