package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"ChipTrack/internal/cli/commands"
	"ChipTrack/internal/config"

	"go.uber.org/zap"
)

func main() {
	// тот же конфиг (env + flags), что и у сервера
	cfg := config.NewConfig()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	commands.Logger = logger.Sugar()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// dispatcher
	exitCode := commands.Dispatch(ctx, cfg, flag.Args())
	if exitCode == 0 {
		return
	}
	os.Exit(exitCode)
}
