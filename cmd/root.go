package cmd

import (
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/JuliusShade/FD-Lead-Gen/internal/listing"
	"github.com/JuliusShade/FD-Lead-Gen/internal/logger"
	"github.com/JuliusShade/FD-Lead-Gen/internal/ratelimit"
	"github.com/JuliusShade/FD-Lead-Gen/internal/secrets"
)

const (
	app = "fd-lead-gen"

	defaultRateLimitDelay = 500 * time.Millisecond
)

type Config struct {
	Search    *SearchConfig    `mapstructure:"search"`
	Listing   *ListingConfig   `mapstructure:"listing"`
	Database  *DatabaseConfig  `mapstructure:"database"`
	Redis     *RedisConfig     `mapstructure:"redis"`
	AI        *AIConfig        `mapstructure:"ai"`
	Apollo    *ApolloConfig    `mapstructure:"apollo"`
	Qualify   *QualifyConfig   `mapstructure:"qualify"`
	RateLimit *RateLimitConfig `mapstructure:"rate-limit"`
}

type SearchConfig struct {
	Query    string `mapstructure:"query"`
	Location string `mapstructure:"location"`
	JobType  string `mapstructure:"job-type"`
	Radius   string `mapstructure:"radius"`
	Sort     string `mapstructure:"sort"`
	Country  string `mapstructure:"country"`
}

type ListingConfig struct {
	APIKeyFile string `mapstructure:"api-key-file"`
}

type DatabaseConfig struct {
	URL     string `mapstructure:"url"`
	URLFile string `mapstructure:"url-file"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
}

type ApolloConfig struct {
	APIKeyFile string `mapstructure:"api-key-file"`
}

type QualifyConfig struct {
	Threshold     int      `mapstructure:"threshold"`
	ContactTitles []string `mapstructure:"contact-titles"`
}

type RateLimitConfig struct {
	MinDelay time.Duration `mapstructure:"min-delay"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "fd-lead-gen ingests job postings and qualifies them into staffing leads",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is fd-lead-gen.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config is needed only for the pipeline commands.
	if discoverCmd.CalledAs() == "" && ingestCmd.CalledAs() == "" && qualifyCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return config, err
	}

	return config, nil
}

func newLogger() *zap.Logger {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return l
}

func newGate(config *Config) *ratelimit.Gate {
	delay := defaultRateLimitDelay
	if config.RateLimit != nil && config.RateLimit.MinDelay > 0 {
		delay = config.RateLimit.MinDelay
	}
	return ratelimit.NewGate(delay)
}

func searchQuery(config *Config) listing.Query {
	if config.Search == nil {
		return listing.Query{}
	}
	return listing.Query{
		Text:     config.Search.Query,
		Location: config.Search.Location,
		JobType:  config.Search.JobType,
		Radius:   config.Search.Radius,
		Sort:     config.Search.Sort,
		Country:  config.Search.Country,
	}
}

func resolveDatabaseURL(config *Config) (string, error) {
	source := secrets.Source{
		Name: "database url",
		Env:  "DATABASE_URL",
	}
	if config.Database != nil {
		source.Value = config.Database.URL
		source.File = config.Database.URLFile
	}
	return secrets.Load(source)
}
