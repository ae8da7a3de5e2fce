package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/storefront-session/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.New()
	setupLogger(cfg.GetLogLevel())

	if err := rootCmd(cfg).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func rootCmd(cfg config.Config) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "storefront",
		Short: "Manage admin and customer storefront sessions",
		Long: `storefront keeps an admin session and a customer session side by side,
persisted in the data folder, and validates them against the storefront
identity API. The admin role may instead be federated to an OpenID Connect
provider when OIDC_ISSUER_URL is set.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&flags.ephemeral, "ephemeral", false, "keep sessions in memory only")
	root.PersistentFlags().StringVar(&flags.path, "path", "/", "navigation path used to pick the primary identity")
	root.PersistentFlags().StringVar(&flags.dataFolder, "data", cfg.GetDataFolder(), "folder holding the persisted sessions")

	root.AddCommand(
		loginCmd(cfg, flags),
		logoutCmd(cfg, flags),
		statusCmd(cfg, flags),
		refreshProfileCmd(cfg, flags),
		watchCmd(cfg, flags),
		devserverCmd(cfg),
	)
	return root
}

func setupLogger(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
