package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"satcatflow/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "satcatflow",
	Short: "Satellite catalog ingestion pipeline",
	Long: `satcatflow logs in to Space-Track, fetches the satellite catalog,
derives orbit geometry for each record and writes the results to JSON,
spreadsheet and parquet sinks.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.yml", "path to configuration file")
}

func main() {
	log := logger.GetLogger()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
