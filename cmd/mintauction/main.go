package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/vieilles-charrues/mintauction/internal/app"
	"github.com/vieilles-charrues/mintauction/internal/config"
)

// main runs the CLI entrypoint and exits on unrecoverable command errors.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	errRun := run(ctx, os.Args[1:])
	stop()
	if errRun != nil {
		log.WithError(errRun).Error("command failed")
		os.Exit(1)
	}
}

// run parses flags, loads config, and starts the server or writes a starter config.
func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("mintauction", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config file path (or env CONFIG_PATH)")
	port := fs.Int("port", 8318, "server port; overrides the config file when set")
	writeConfig := fs.Bool("write-config", false, "write a starter config file and exit")
	dsn := fs.String("dsn", "", "database DSN for -write-config (default: local SQLite file)")
	migrateOnly := fs.Bool("migrate", false, "run database migrations and exit")
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}

	if errValidate := validatePort(*port); errValidate != nil {
		return errValidate
	}

	appCfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	if strings.TrimSpace(*cfgPath) != "" {
		appCfg.ConfigPath = config.ResolveConfigPath(*cfgPath)
	}

	switch {
	case *writeConfig:
		if errWrite := app.WriteConfigFile(appCfg.ConfigPath, *dsn, *port); errWrite != nil {
			return errWrite
		}
		log.Infof("config written to %s", appCfg.ConfigPath)
		return nil
	case *migrateOnly:
		return app.Migrate(ctx, appCfg)
	}

	if !app.ConfigExists(appCfg.ConfigPath) {
		log.Infof("config %s not found, using defaults", appCfg.ConfigPath)
	}
	return app.RunServer(ctx, appCfg, serverPort(fs, *port))
}

// serverPort returns the -port value when it was given explicitly, and zero
// otherwise so the config file can choose.
func serverPort(fs *flag.FlagSet, port int) int {
	explicit := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "port" {
			explicit = true
		}
	})
	if !explicit {
		return 0
	}
	return port
}

func validatePort(port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port: %d", port)
	}
	return nil
}
