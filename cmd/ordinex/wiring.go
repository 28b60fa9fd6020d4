package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kalyank1144/Ordinex-sub008/internal/approval"
	"github.com/kalyank1144/Ordinex-sub008/internal/eventlog"
	"github.com/kalyank1144/Ordinex-sub008/internal/events"
	"github.com/kalyank1144/Ordinex-sub008/internal/llm"
	"github.com/kalyank1144/Ordinex-sub008/internal/mission"
	"github.com/kalyank1144/Ordinex-sub008/internal/storage/sqlite"
	"github.com/kalyank1144/Ordinex-sub008/internal/workspace"
)

// runtime holds the wired collaborators behind one mission run.
type runtime struct {
	ws        *workspace.Workspace
	log       *eventlog.Log
	bus       *eventlog.Bus
	index     *sqlite.Store
	machine   *mission.Machine
	transport approval.Transport

	closers []func() error
}

// buildRuntime wires the full execution stack from configuration: the
// workspace, the event log plus its queryable index, the model client,
// the approval transport, and the mission machine on top.
func buildRuntime(ctx context.Context) (*runtime, error) {
	rt := &runtime{}

	ws, err := workspace.New(cfg.Workspace.Root, logger)
	if err != nil {
		return nil, err
	}
	rt.ws = ws

	log, err := eventlog.Open(cfg.Events.LogPath, logger)
	if err != nil {
		return nil, err
	}
	rt.log = log
	rt.closers = append(rt.closers, log.Close)
	rt.bus = eventlog.NewBus(log, logger)

	index, err := sqlite.New(ctx, cfg.Events.IndexPath)
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.index = index
	rt.closers = append(rt.closers, index.Close)

	// Every published event lands in the index as well; the index is
	// derived state and can always be rebuilt from the log.
	rt.bus.Subscribe(func(ev *events.Event) {
		if err := index.IndexEvent(context.Background(), ev); err != nil {
			logger.Warn("failed to index event",
				zap.String("event_id", ev.ID),
				zap.Error(err))
		}
	})

	checkpoints, err := workspace.NewCheckpointStore(ws, filepath.Join(cfg.Workspace.StateDir, "checkpoints"), logger)
	if err != nil {
		rt.close()
		return nil, err
	}

	proposer, err := llm.NewAnthropicProposer(llm.Config{
		APIKey:            os.Getenv("ANTHROPIC_API_KEY"),
		Model:             cfg.LLM.Model,
		MaxTokens:         cfg.LLM.MaxTokens,
		MaxRetries:        cfg.LLM.MaxRetries,
		RequestTimeout:    cfg.LLM.RequestTimeout,
		MaxConcurrent:     cfg.LLM.MaxConcurrent,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
	}, logger)
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}

	transport, err := buildTransport(rt)
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.transport = transport

	machine, err := mission.NewMachine(mission.MachineConfig{
		Mission:     cfg.Mission,
		Bus:         rt.bus,
		Workspace:   ws,
		Checkpoints: checkpoints,
		Proposer:    proposer,
		Transport:   transport,
		Runner:      mission.NewExecRunner(ws.Root(), cfg.Mission.TestTimeout),
		Logger:      logger,
	})
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.machine = machine
	return rt, nil
}

func buildTransport(rt *runtime) (approval.Transport, error) {
	if cfg.Mission.AutoApprove || approval.AutoApproveEnabled() {
		logger.Warn("auto-approve is enabled; every gate will be granted without prompting")
		return approval.AutoTransport{}, nil
	}
	terminal, err := approval.NewTerminalTransport()
	if err != nil {
		return nil, fmt.Errorf("failed to open approval terminal: %w", err)
	}
	rt.closers = append(rt.closers, terminal.Close)
	return terminal, nil
}

func (rt *runtime) close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			logger.Warn("shutdown error", zap.Error(err))
		}
	}
}
