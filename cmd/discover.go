package cmd

import (
	"context"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JuliusShade/FD-Lead-Gen/internal/store"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Create or recreate the posting tables",
	Run: func(cmd *cobra.Command, _ []string) {
		discover(cmd)
	},
}

func init() {
	rootCmd.AddCommand(discoverCmd)

	discoverCmd.Flags().Bool("drop", false, "drop existing tables before creating them")
}

func discover(cmd *cobra.Command) {
	ctx := context.Background()
	logger := newLogger()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	databaseURL, err := resolveDatabaseURL(config)
	if err != nil {
		logger.Fatal("loading database url",
			zap.Error(err),
			zap.String("hint", "set DATABASE_URL or the 'database.url' key in the configuration file"),
		)
	}

	st, err := store.New(ctx, databaseURL, logger)
	if err != nil {
		logger.Fatal("connecting to the database", zap.Error(err))
	}
	defer st.Close()

	if cmd.Flag("drop").Value.String() == "true" {
		prompt := promptui.Select{
			Label: "Drop existing tables and all stored postings?",
			Items: []string{PromptNo, PromptYes},
		}

		_, answer, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if answer != PromptYes {
			logger.Info("exiting", zap.String("reason", "drop not confirmed"))
			return
		}

		if err := st.DropSchema(ctx); err != nil {
			logger.Fatal("dropping schema", zap.Error(err))
		}
	}

	if err := st.EnsureSchema(ctx); err != nil {
		logger.Fatal("creating schema", zap.Error(err))
	}

	logger.Info("schema ready")
}
