package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/jobrefme/jobrefme-cli/internal/buildinfo"
	"github.com/jobrefme/jobrefme-cli/internal/client/cli"
	"github.com/jobrefme/jobrefme-cli/internal/client/config"
	"github.com/jobrefme/jobrefme-cli/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.NewTextLogger(slog.LevelInfo)

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)

}
