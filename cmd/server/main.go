package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "mealplan-server",
		Short:         "Subscription and meal plan backend",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(plansCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger picks the zap preset from GIN_MODE, before configuration is loaded.
func newLogger() (*zap.Logger, error) {
	if strings.EqualFold(os.Getenv("GIN_MODE"), "release") {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
