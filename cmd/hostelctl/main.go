package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/skyhostel/sky_hostel/bootstrap"
	config "github.com/skyhostel/sky_hostel/configs"
	"github.com/skyhostel/sky_hostel/utils"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "hostelctl",
		Short:         "Operator tooling for the Sky Hostel payment backend",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(issueCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openContainer loads settings and connects every configured client.
func openContainer() (*bootstrap.Container, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := utils.NewLogger(settings.IsDevelopment())
	if err != nil {
		return nil, err
	}
	return bootstrap.Build(settings, logger)
}
