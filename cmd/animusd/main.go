package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/animus-chat/animus/internal/observability"
	"github.com/animus-chat/animus/internal/profile"
	"github.com/animus-chat/animus/plugin/ai"
	"github.com/animus-chat/animus/server/engine"
	apiv1 "github.com/animus-chat/animus/server/router/api/v1"
	"github.com/animus-chat/animus/store"
	"github.com/animus-chat/animus/store/db"
)

const version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "animusd",
	Short: "Tiered memory and context assembly server for LLM chat",
	RunE: func(_ *cobra.Command, _ []string) error {
		return serve()
	},
}

func init() {
	rootCmd.PersistentFlags().String("mode", "dev", `mode of the server, can be "prod" or "dev"`)
	rootCmd.PersistentFlags().String("addr", "", "address of the server")
	rootCmd.PersistentFlags().Int("port", 8231, "port of the server")
	rootCmd.PersistentFlags().String("data", "./data/sessions", "directory holding the per-session databases")

	_ = viper.BindPFlag("mode", rootCmd.PersistentFlags().Lookup("mode"))
	_ = viper.BindPFlag("addr", rootCmd.PersistentFlags().Lookup("addr"))
	_ = viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	_ = viper.BindPFlag("data", rootCmd.PersistentFlags().Lookup("data"))

	viper.SetEnvPrefix("animus")
	viper.AutomaticEnv()
}

func serve() error {
	p := profile.Default()
	p.Version = version
	p.Mode = viper.GetString("mode")
	p.Addr = viper.GetString("addr")
	p.Port = viper.GetInt("port")
	p.Data = viper.GetString("data")
	p.FromEnv()
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := observability.NewLogger(p.IsDev())

	dbDriver, err := db.NewDBDriver(p)
	if err != nil {
		return fmt.Errorf("failed to create db driver: %w", err)
	}
	storeInstance := store.New(dbDriver, p)

	var embedder ai.EmbeddingService
	var summarizer ai.SummarizerService
	if p.AIAPIKey != "" {
		cfg := ai.DefaultConfig()
		cfg.BaseURL = p.AIBaseURL
		cfg.APIKey = p.AIAPIKey
		cfg.EmbeddingModel = p.AIEmbeddingModel
		cfg.ChatModel = p.AIChatModel
		provider, err := ai.NewProvider(cfg)
		if err != nil {
			return fmt.Errorf("failed to create AI provider: %w", err)
		}
		embedder = provider
		summarizer = provider
	} else {
		logger.Warn("no AI API key configured, semantic retrieval and summarization are disabled")
	}

	eng := engine.New(p, storeInstance, embedder, summarizer, ai.NewTiktokenCounter(), logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	apiv1.NewAPIV1Service(p, eng, logger).Register(e)

	addr := fmt.Sprintf("%s:%d", p.Addr, p.Port)
	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	logger.Info("server started", "addr", addr, "mode", p.Mode, "version", p.Version)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	// Stop compaction before closing the store so in-flight summaries
	// either land or are abandoned cleanly.
	eng.Close()
	if err := storeInstance.Close(); err != nil {
		logger.Error("store close failed", "error", err)
	}
	logger.Info("server stopped")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
