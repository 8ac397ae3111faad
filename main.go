package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/habedi/sessiond/cmd"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// shutdownGrace is how long a command gets to wind down after the first
// interrupt before the process is killed.
const shutdownGrace = 15 * time.Second

func main() {
	configureLogLevelFromEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopChan := setupInterruptListener()
	go handleInterrupt(stopChan, cancel, shutdownGrace,
		func(msg string) { log.Error().Msg(msg) },
		os.Exit)

	cmd.Execute(ctx)
}

// configureLogLevelFromEnv enables debug logging when DEBUG_SESSIOND is set
// to anything other than false or 0, and disables logging otherwise.
func configureLogLevelFromEnv() {
	switch os.Getenv("DEBUG_SESSIOND") {
	case "", "false", "0":
		zerolog.SetGlobalLevel(zerolog.Disabled)
	default:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

func setupInterruptListener() chan os.Signal {
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt)
	return stopChan
}

// handleInterrupt cancels the running command on the first interrupt and
// exits if it has not finished after grace or on a second interrupt.
func handleInterrupt(stopChan chan os.Signal, cancel context.CancelFunc, grace time.Duration, fatalLog func(string), exit func(int)) {
	<-stopChan
	log.Info().Msg("Interrupt signal received. Shutting down...")
	cancel()

	select {
	case <-stopChan:
	case <-time.After(grace):
	}
	fatalLog("Interrupt signal received. Exiting...")
	exit(1)
}
