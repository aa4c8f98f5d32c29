package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/catering-backend/pkg/logger"
	"github.com/angelmondragon/catering-backend/pkg/metrics"
	"github.com/angelmondragon/catering-backend/pkg/toolgateway"
	"github.com/google/uuid"
)

// OrchestratorParams configure the workflow orchestrator.
type OrchestratorParams struct {
	Logger   *logger.Logger
	Tools    *toolgateway.Tools
	Metrics  *metrics.WorkflowMetrics
	Defaults Defaults
}

// Orchestrator runs the catering workflow stages in order over a fresh State.
type Orchestrator struct {
	logg     *logger.Logger
	tools    *toolgateway.Tools
	metrics  *metrics.WorkflowMetrics
	defaults Defaults
}

// NewOrchestrator builds a workflow orchestrator.
func NewOrchestrator(params OrchestratorParams) (*Orchestrator, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Tools == nil {
		return nil, fmt.Errorf("tools required")
	}
	return &Orchestrator{
		logg:     params.Logger,
		tools:    params.Tools,
		metrics:  params.Metrics,
		defaults: params.Defaults,
	}, nil
}

// Run executes one workflow. The first failing stage aborts the run and its
// error is returned unchanged; no partial state is returned with it.
func (o *Orchestrator) Run(ctx context.Context, in RunInput) (State, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	in = in.normalized(o.defaults)
	return o.runRegistry(ctx, BuildRegistry(o.tools, in))
}

func (o *Orchestrator) runRegistry(ctx context.Context, registry *Registry) (State, error) {
	runCtx := o.logg.WithRunID(ctx, uuid.NewString())
	runCtx = o.logg.WithField(runCtx, "event", "agent.run")
	o.logg.Info(runCtx, "workflow run starting")
	start := time.Now()

	state := State{}
	for _, s := range registry.Stages() {
		next, err := o.runStage(runCtx, s, state)
		if err != nil {
			return State{}, err
		}
		state = next
	}

	doneCtx := o.logg.WithField(runCtx, "duration_ms", time.Since(start).Milliseconds())
	o.logg.Info(doneCtx, "workflow run complete")
	return state, nil
}

func (o *Orchestrator) runStage(ctx context.Context, s Stage, state State) (State, error) {
	stageCtx := o.logg.WithStage(ctx, s.Name())
	if !s.Enabled() {
		o.logg.Debug(stageCtx, "stage skipped")
		o.metrics.IncSkipped(s.Name())
		return state, nil
	}

	o.logg.Debug(stageCtx, "stage start")
	start := time.Now()
	next, err := s.Run(stageCtx, state)
	duration := time.Since(start)
	o.metrics.ObserveDuration(s.Name(), duration)
	stageCtx = o.logg.WithField(stageCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		o.logg.Error(stageCtx, "stage failed", err)
		o.metrics.IncFailure(s.Name())
		return state, err
	}
	o.logg.Info(stageCtx, "stage completed")
	o.metrics.IncSuccess(s.Name())
	return next, nil
}
