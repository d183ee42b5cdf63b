// Package main provides the entry point for the engine status CLI.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/match-oracle/internal/config"
	"github.com/yourusername/match-oracle/internal/database"
	"github.com/yourusername/match-oracle/internal/repository"
	"github.com/yourusername/match-oracle/internal/service"
)

var (
	configFile string
	appLog     *logrus.Logger
	cfg        *config.Config
	db         *database.DB
	repos      *repository.Repositories
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
}

var rootCmd = &cobra.Command{
	Use:   "status",
	Short: "Check prediction engine status",
	Long:  `Displays per-market model versions, verification accuracy and ROI, plus match pipeline counts.`,
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
		return displayStatus(cmd.Context())
	},
}

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
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
	return config.Validate(cfg)
}

func setupDependencies(ctx context.Context) error {
	appLog = logrus.New()
	appLog.SetLevel(logrus.WarnLevel)

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

func displayStatus(ctx context.Context) error {
	collector := service.NewStatsCollector(repos.Match, repos.Prediction, repos.Model, repos.ROI)
	stats, err := collector.Collect(ctx)
	if err != nil {
		return fmt.Errorf("failed to collect stats: %w", err)
	}

	fmt.Printf("\nMatch Oracle status at %s\n\n", stats.GeneratedAt.Format(time.RFC3339))

	fmt.Println("Match pipeline:")
	for _, status := range []string{"scheduled", "finished", "verified", "cancelled"} {
		fmt.Printf("  %-10s %d\n", status, stats.MatchesByStatus[status])
	}

	fmt.Println("\nMarkets:")
	fmt.Printf("  %-20s %-12s %8s %10s %10s %8s\n", "market", "model", "samples", "accuracy", "roi", "bets")
	for _, m := range stats.Markets {
		version := m.ModelVersion
		if version == "" {
			version = "-"
		}
		fmt.Printf("  %-20s %-12s %8d %9.1f%% %9.2f%% %8d\n",
			m.Market, version, m.ModelSamples, m.LifetimeAccuracy, m.OverallROI, m.OverallBets)
		if m.TrainedAt != nil {
			fmt.Printf("  %-20s trained %s, holdout accuracy %.1f%%, %d verified predictions\n",
				"", m.TrainedAt.Format("2006-01-02 15:04"), m.ModelAccuracy*100, m.VerifiedCount)
		}
	}

	fmt.Println()
	return nil
}
