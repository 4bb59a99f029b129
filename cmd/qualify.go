package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JuliusShade/FD-Lead-Gen/internal/ai"
	"github.com/JuliusShade/FD-Lead-Gen/internal/ai/gemini"
	"github.com/JuliusShade/FD-Lead-Gen/internal/contacts"
	"github.com/JuliusShade/FD-Lead-Gen/internal/logger"
	"github.com/JuliusShade/FD-Lead-Gen/internal/qualify"
	"github.com/JuliusShade/FD-Lead-Gen/internal/ratelimit"
	"github.com/JuliusShade/FD-Lead-Gen/internal/scoring"
	"github.com/JuliusShade/FD-Lead-Gen/internal/secrets"
	"github.com/JuliusShade/FD-Lead-Gen/internal/store"
)

var qualifyCmd = &cobra.Command{
	Use:   "qualify",
	Short: "Score stored postings and persist the qualified leads",
	Run: func(cmd *cobra.Command, _ []string) {
		runQualify(cmd)
	},
}

func init() {
	rootCmd.AddCommand(qualifyCmd)

	qualifyCmd.Flags().Int("from-days", 1, "qualify postings published in the last N days")
	qualifyCmd.Flags().Bool("nightly", false, "qualify only the trailing 24 hours")
}

func runQualify(cmd *cobra.Command) {
	ctx := context.Background()
	log := newLogger()

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}

	log.Info("starting "+app, zap.String("version", version))

	databaseURL, err := resolveDatabaseURL(config)
	if err != nil {
		log.Fatal("loading database url", zap.Error(err))
	}

	st, err := store.New(ctx, databaseURL, log)
	if err != nil {
		log.Fatal("connecting to the database", zap.Error(err))
	}
	defer st.Close()

	if err := st.EnsureSchema(ctx); err != nil {
		log.Fatal("creating schema", zap.Error(err))
	}

	gate := newGate(config)

	evaluator, err := newEvaluator(ctx, config, log)
	if err != nil {
		log.Fatal("building evaluator",
			zap.Error(err),
			zap.String("hint", "set GEMINI_API_KEY or the 'ai.gemini.api-key-file' key in the configuration file"),
		)
	}

	threshold := 0
	var titles []string
	if config.Qualify != nil {
		threshold = config.Qualify.Threshold
		titles = config.Qualify.ContactTitles
	}

	scorer := scoring.New(evaluator, gate, log, threshold)
	sourcer := contacts.NewSourcer(newContactProvider(config, log, gate), evaluator, newContactCache(config, log), log, titles)
	runner := qualify.NewRunner(st, st, scorer, sourcer, log)

	var summary *qualify.Summary
	if nightly, _ := cmd.Flags().GetBool("nightly"); nightly {
		summary, err = runner.Nightly(ctx)
	} else {
		fromDays, _ := cmd.Flags().GetInt("from-days")
		summary, err = runner.Backfill(ctx, fromDays)
	}
	if err != nil {
		log.Fatal("qualification failed", zap.Error(err))
	}

	report, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(report))
}

func newEvaluator(ctx context.Context, config *Config, log *zap.Logger) (ai.Evaluator, error) {
	if config.AI == nil || config.AI.Gemini == nil {
		return nil, fmt.Errorf("ai.gemini configuration is required")
	}

	provider := strings.TrimSpace(strings.ToLower(config.AI.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", config.AI.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: config.AI.Gemini.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, err
	}

	genLogger := logger.WithProvider(log, "gemini", config.AI.Gemini.Model)

	return gemini.NewGenerator(ctx, apiKey, config.AI.Gemini.Model, genLogger)
}

func newContactProvider(config *Config, log *zap.Logger, gate *ratelimit.Gate) contacts.Provider {
	source := secrets.Source{
		Name: "apollo api key",
		Env:  "APOLLO_IO_API_KEY",
	}
	if config.Apollo != nil {
		source.File = config.Apollo.APIKeyFile
	}

	apiKey, err := secrets.Load(source)
	if err != nil {
		// Contact sourcing degrades to "no contact" without a key.
		log.Warn("apollo api key not configured, contact sourcing disabled", zap.Error(err))
		return noopProvider{}
	}

	return contacts.NewApolloClient(apiKey, log, gate)
}

func newContactCache(config *Config, log *zap.Logger) *contacts.Cache {
	if config.Redis == nil || !config.Redis.Enabled {
		return nil
	}
	return contacts.NewCache(config.Redis.Addr, config.Redis.Password, config.Redis.DB, config.Redis.TTL, log)
}

// noopProvider resolves nothing, so every lookup ends with no contact.
type noopProvider struct{}

func (noopProvider) SearchOrganization(_ context.Context, _ string) (string, error) {
	return "", nil
}

func (noopProvider) SearchPeople(_ context.Context, _, _ string) ([]contacts.Person, error) {
	return nil, nil
}
