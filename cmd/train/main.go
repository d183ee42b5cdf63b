// Package main provides the entry point for the manual training CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/match-oracle/internal/config"
	"github.com/yourusername/match-oracle/internal/database"
	"github.com/yourusername/match-oracle/internal/features"
	"github.com/yourusername/match-oracle/internal/logger"
	"github.com/yourusername/match-oracle/internal/models"
	"github.com/yourusername/match-oracle/internal/rating"
	"github.com/yourusername/match-oracle/internal/repository"
	"github.com/yourusername/match-oracle/internal/training"
)

var (
	configFile string
	market     string
	appLog     *logrus.Logger
	cfg        *config.Config
	db         *database.DB
	repos      *repository.Repositories
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.Flags().StringVarP(&market, "market", "m", "", "Train a single market instead of all configured markets")
}

var rootCmd = &cobra.Command{
	Use:   "train",
	Short: "Train prediction models from verified match history",
	Long:  `Builds feature sets from verified matches and trains a fresh ensemble per market, activating each new model on success.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := setupDependencies(cmd.Context()); err != nil {
			return fmt.Errorf("failed to setup dependencies: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		defer db.Close()
		return runTraining(cmd.Context())
	},
}

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig() error {
	var err error
	cfg, err = config.Load(configFile)
	if err != nil {
		return err
	}
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return fmt.Errorf("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			return fmt.Errorf("failed to load secrets: %w", err)
		}
	}
	return config.Validate(cfg)
}

func setupDependencies(ctx context.Context) error {
	appLog = logger.NewLogger(cfg.App.LogLevel)

	var err error
	db, err = database.NewDB(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	repos, err = repository.NewRepositories(db)
	if err != nil {
		return fmt.Errorf("failed to initialize repositories: %w", err)
	}

	return nil
}

func runTraining(ctx context.Context) error {
	engineLog := logger.NewEngineLogger(appLog)
	ratings := rating.NewEngine(cfg.Rating, repos.TeamRating, repos.Event, engineLog)
	builder := features.NewBuilder(repos.Match, ratings)
	trainer := training.NewTrainer(cfg.Training, repos.Match, repos.Model, repos.Event, builder, engineLog)

	if market != "" {
		if !models.ValidMarket(market) {
			return fmt.Errorf("unknown market: %s", market)
		}
		return trainSingle(ctx, trainer, market)
	}

	markets := cfg.Training.Markets
	if len(markets) == 0 {
		markets = models.AllMarkets
	}
	var failed int
	for _, m := range markets {
		if err := trainSingle(ctx, trainer, m); err != nil {
			appLog.WithError(err).WithField("market", m).Error("Training failed")
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("training failed for %d of %d markets", failed, len(markets))
	}
	return nil
}

func trainSingle(ctx context.Context, trainer *training.Trainer, m string) error {
	model, err := trainer.TrainMarket(ctx, m)
	if err != nil {
		if errors.Is(err, models.ErrInsufficientData) {
			fmt.Printf("%-20s skipped: not enough verified samples\n", m)
			return nil
		}
		return err
	}
	fmt.Printf("%-20s version=%s samples=%d accuracy=%.1f%% log_loss=%.4f\n",
		model.Market, model.Version, model.SampleCount, model.Accuracy*100, model.LogLoss)
	return nil
}
