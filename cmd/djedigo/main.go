package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"djedigo/internal/config"
	"djedigo/pkg/djedi"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "path to config file (defaults apply when empty)")
	single := flag.Bool("single", false, "fetch every node with its own request")
	def := flag.String("default", "", "default value for nodes the CMS does not have")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] uri...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	// Load config
	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			// Basic logger for startup errors
			log := zerolog.New(os.Stderr).With().Timestamp().Logger()
			log.Fatal().Err(err).Msg("failed to load config")
		}
	}

	// Setup logger
	logger := setupLogger(cfg.LogLevel)
	logger.Debug().
		Str("config", *configPath).
		Str("baseUrl", cfg.BaseURL).
		Str("transport", string(cfg.Transport)).
		Str("language", cfg.Language).
		Int("batchInterval", cfg.BatchInterval).
		Msg("starting djedigo")

	client, err := djedi.NewFromConfig(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create client")
	}

	var value *string
	if isFlagSet("default") {
		value = def
	}

	nodes := resolve(client, flag.Args(), value, *single)

	// Close on completion or on a shutdown signal, whichever comes first
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	select {
	case out := <-nodes:
		enc := json.NewEncoder(os.Stdout)
		for _, node := range out {
			if err := enc.Encode(node); err != nil {
				logger.Error().Err(err).Msg("failed to write node")
			}
		}
	case <-ctx.Done():
		logger.Warn().Err(ctx.Err()).Msg("interrupted before all nodes resolved")
	}

	if err := client.Close(ctx); err != nil {
		logger.Error().Err(err).Msg("error during shutdown")
	}
}

// resolve requests every uri and delivers the nodes in argument order once
// all callbacks ran
func resolve(client *djedi.Client, uris []string, value *string, single bool) <-chan []djedi.Node {
	out := make([]djedi.Node, len(uris))
	done := make(chan []djedi.Node, 1)

	var wg sync.WaitGroup
	wg.Add(len(uris))
	for i, u := range uris {
		cb := func(node djedi.Node) {
			out[i] = node
			wg.Done()
		}
		req := djedi.Request{URI: u, Value: value}
		if single {
			client.Get(req, cb)
		} else {
			client.GetBatched(req, cb)
		}
	}

	go func() {
		wg.Wait()
		done <- out
	}()
	return done
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// setupLogger configures the zerolog logger
func setupLogger(level string) zerolog.Logger {
	// Set log level
	var logLevel zerolog.Level
	switch level {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)

	// Nodes go to stdout, so logs go to stderr
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}

	return zerolog.New(output).With().Timestamp().Logger()
}
