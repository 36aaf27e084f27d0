package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jobrefme/jobrefme-cli/internal/buildinfo"
	"github.com/jobrefme/jobrefme-cli/internal/client/agent"
	"github.com/jobrefme/jobrefme-cli/internal/client/cli"
	"github.com/jobrefme/jobrefme-cli/internal/client/config"
	"github.com/jobrefme/jobrefme-cli/internal/client/state"
	"github.com/jobrefme/jobrefme-cli/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	logger := logging.NewTextLogger(slog.LevelInfo)

	st, err := cli.OpenStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}
	defer st.Close()

	sealer, err := cli.LoadSealer(cfg.KeyfilePath)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	manager, err := state.NewManager(ctx, st, state.WithLogger(logger), state.WithSealer(sealer))
	if err != nil {
		log.Fatalf("%v", err)
		return
	}
	defer manager.Close()

	a := agent.New(st, manager, logger)
	if err := a.ListenAndServe(ctx, cfg.AgentAddr); err != nil {
		log.Fatalf("%v", err)
	}

}
