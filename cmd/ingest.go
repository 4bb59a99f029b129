package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JuliusShade/FD-Lead-Gen/internal/ingest"
	"github.com/JuliusShade/FD-Lead-Gen/internal/listing"
	"github.com/JuliusShade/FD-Lead-Gen/internal/secrets"
	"github.com/JuliusShade/FD-Lead-Gen/internal/store"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch postings from the listing provider into the raw store",
	Run: func(cmd *cobra.Command, _ []string) {
		runIngest(cmd)
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().Int("from-days", 30, "how many days back to fetch")
	ingestCmd.Flags().Int("max-pages", 10, "maximum pages to fetch")
	ingestCmd.Flags().Bool("nightly", false, "fetch only the trailing 24 hours")
}

func runIngest(cmd *cobra.Command) {
	ctx := context.Background()
	logger := newLogger()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting "+app, zap.String("version", version))

	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	apiKey, err := resolveListingKey(config)
	if err != nil {
		logger.Fatal("loading listing api key",
			zap.Error(err),
			zap.String("hint", "set RAPIDAPI_KEY or the 'listing.api-key-file' key in the configuration file"),
		)
	}

	databaseURL, err := resolveDatabaseURL(config)
	if err != nil {
		logger.Fatal("loading database url", zap.Error(err))
	}

	st, err := store.New(ctx, databaseURL, logger)
	if err != nil {
		logger.Fatal("connecting to the database", zap.Error(err))
	}
	defer st.Close()

	if err := st.EnsureSchema(ctx); err != nil {
		logger.Fatal("creating schema", zap.Error(err))
	}

	client := listing.New(apiKey, logger, newGate(config))
	runner := ingest.NewRunner(client, st, logger, searchQuery(config))

	maxPages, _ := cmd.Flags().GetInt("max-pages")
	fromDays, _ := cmd.Flags().GetInt("from-days")

	var summary *ingest.Summary
	if nightly, _ := cmd.Flags().GetBool("nightly"); nightly {
		summary, err = runner.Nightly(ctx, maxPages)
	} else {
		summary, err = runner.Run(ctx, fromDays, maxPages)
	}
	if err != nil {
		logger.Fatal("ingestion failed", zap.Error(err))
	}

	report, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(report))
}

func resolveListingKey(config *Config) (string, error) {
	source := secrets.Source{
		Name: "listing api key",
		Env:  "RAPIDAPI_KEY",
	}
	if config.Listing != nil {
		source.File = config.Listing.APIKeyFile
	}
	return secrets.Load(source)
}
