// @title           NutriPlan API
// @version         1.0
// @description     API сервиса планов питания по подписке.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package main

import (
	"fmt"
	"os"

	"nutriplan_backend/internal/app"
	"nutriplan_backend/internal/config"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "nutriplan",
	Short:         "NutriPlan backend: subscriptions, nutrition plans and chat",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database schema and seed roles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			return app.MigrateOnly(cfg)
		},
	}
}

func newSeedAdminCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the first administrator if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if email != "" {
				cfg.FirstAdminEmail = email
			}
			if password != "" {
				cfg.FirstAdminPassword = password
			}
			return app.SeedAdmin(cfg)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "admin email (overrides FIRST_ADMIN_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "admin password (overrides FIRST_ADMIN_PASSWORD)")
	return cmd
}

func serve() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	return app.Run(cfg)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $CONFIG_PATH or config/config.yaml)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newSeedAdminCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
