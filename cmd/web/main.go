package main

import (
	"fmt"
	"os"

	"github.com/de-tools/soil-atlas/pkg/runtime/app"
	"github.com/de-tools/soil-atlas/pkg/server"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var cfgPath string

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the web server for Soil Atlas",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "",
		"Path to the soil atlas config file (defaults and SOIL_ATLAS_* variables otherwise)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	a, err := app.Load(ctx, cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load soil atlas: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close databases")
		}
	}()

	logger.Info().Msgf("Configuration `%s` loaded, source driver `%s`.", cfgPath, a.Config.Source.Driver)

	webAPI := server.NewWebAPI(logger, server.Config{
		Addr:            a.Config.Server.Addr,
		ShutdownTimeout: a.Config.Server.ShutdownTimeout,
		Dependencies: server.Dependencies{
			Rating: a.Rating,
			Batch:  a.Batch,
		},
	})
	return webAPI.Start()
}
