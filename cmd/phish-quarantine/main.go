package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mikey/phish-quarantine/internal/classifier"
	"github.com/mikey/phish-quarantine/internal/core"
	"github.com/mikey/phish-quarantine/internal/di"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	pipeline *core.PipelineService,
	textClassifier *classifier.Classifier,
	emailSource core.EmailSource,
	store core.QuarantineRepository,
	pollInterval time.Duration,
) error {
	defer logger.Sync()

	// Pick up a previously trained model; missing or corrupt artifacts
	// leave the classifier untrained
	textClassifier.LoadPersisted()

	// Push-based sources (SMTP) need starting; polling sources don't
	if starter, ok := emailSource.(interface{ Start() error }); ok {
		if err := starter.Start(); err != nil {
			logger.Fatal("Failed to start capture source", zap.Error(err))
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Poll loop: each tick runs one full ingest-score-quarantine cycle.
	// There is no retry inside a cycle; a failed fetch waits for the next
	// tick.
	go func() {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		logger.Info("Scan loop started", zap.Duration("poll_interval", pollInterval))
		pipeline.RunCycle(ctx)

		for {
			select {
			case <-ticker.C:
				pipeline.RunCycle(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")
	cancel()

	// Stop the capture source if needed
	if stopper, ok := emailSource.(interface{ Stop() error }); ok {
		if err := stopper.Stop(); err != nil {
			logger.Error("Failed to stop capture source", zap.Error(err))
		}
	}

	// Close the store if needed
	if closer, ok := store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close quarantine store", zap.Error(err))
		}
	}

	logger.Info("Shutdown complete")
	return nil
}
