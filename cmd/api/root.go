package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/brooktewabe/Activity-Log-Service/internal/app"
	"github.com/brooktewabe/Activity-Log-Service/internal/broker"
	"github.com/brooktewabe/Activity-Log-Service/internal/config"
	"github.com/brooktewabe/Activity-Log-Service/internal/httpserver"
	"github.com/brooktewabe/Activity-Log-Service/internal/ratelimit"
)

var (
	configPath string
	brokers    []string
	topic      string
)

var rootCmd = &cobra.Command{
	Use:   "activity-log",
	Short: "HTTP gateway that forwards activity logs to Kafka",
	Long: `Accepts activity log events over HTTP and produces each one as a record
to a Kafka topic, keyed by the generated log id.

Examples:
  # Serve with settings from the environment (and .env when present)
  activity-log

  # Serve with a YAML config file; environment variables still win
  activity-log serve --config config.yaml

  # Check that the brokers are reachable and the topic exists
  activity-log check-broker --brokers kafka-1:9092,kafka-2:9092`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ingestion HTTP server (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var checkBrokerCmd = &cobra.Command{
	Use:   "check-broker",
	Short: "Dial the bootstrap brokers and report cluster metadata",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheckBroker(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file path")
	checkBrokerCmd.Flags().StringSliceVar(&brokers, "brokers", nil, "Kafka brokers (overrides config)")
	checkBrokerCmd.Flags().StringVar(&topic, "topic", "", "topic to look up (overrides config)")

	rootCmd.AddCommand(serveCmd, checkBrokerCmd)
}

func loadConfig() (config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load()
}

// runServe boots the service: config → producer → router → HTTP server, and
// closes the producer after the server has drained.
func runServe(ctx context.Context) error {
	logger := log.New(os.Stdout, "[ACTIVITY-LOG] ", log.LstdFlags|log.Lshortfile)

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	state, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create producer: %w", err)
	}
	defer func() {
		if err := state.Close(); err != nil {
			logger.Printf("ERROR: failed to close producer: %v", err)
		}
	}()

	var limiter ratelimit.Limiter
	if cfg.RateLimit.Enabled() {
		rl, err := ratelimit.NewRedisLimiterFromURL(cfg.RateLimit.RedisURL, cfg.RateLimit.PerMinute)
		if err != nil {
			return err
		}
		defer rl.Close()
		limiter = rl
		logger.Printf("INFO: rate limiting ingestion to %d requests per minute per client", cfg.RateLimit.PerMinute)
	}

	router := httpserver.NewRouter(state, limiter)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return httpserver.ListenAndServe(ctx, cfg, router, logger)
}

func runCheckBroker(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if len(brokers) > 0 {
		cfg.Kafka.Brokers = brokers
	}
	if topic != "" {
		cfg.Kafka.Topic = topic
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	info, err := broker.Probe(ctx, cfg.Kafka.Brokers, cfg.Kafka.ClientID, cfg.Kafka.Topic)
	if err != nil {
		return fmt.Errorf("broker check failed: %w", err)
	}

	fmt.Printf("Connected via %s\n", info.Addr)
	fmt.Printf("Brokers:\n")
	for _, b := range info.Brokers {
		fmt.Printf("  %d  %s:%d\n", b.ID, b.Host, b.Port)
	}
	fmt.Printf("Topic %s: %d partition(s)\n", cfg.Kafka.Topic, len(info.Partitions))
	return nil
}
