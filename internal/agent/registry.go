package agent

import "context"

// Stage is one step of the workflow.
type Stage interface {
	Name() string
	Enabled() bool
	Run(ctx context.Context, state State) (State, error)
}

// StageFunc transforms a State into the next one.
type StageFunc func(ctx context.Context, state State) (State, error)

type stage struct {
	name    string
	enabled bool
	run     StageFunc
}

// NewStage wraps fn as a Stage.
func NewStage(name string, enabled bool, fn StageFunc) Stage {
	return stage{name: name, enabled: enabled, run: fn}
}

func (s stage) Name() string  { return s.name }
func (s stage) Enabled() bool { return s.enabled && s.run != nil }

func (s stage) Run(ctx context.Context, state State) (State, error) {
	return s.run(ctx, state)
}

// Registry tracks workflow stages in execution order.
type Registry struct {
	stages []Stage
}

// NewRegistry builds a registry preloaded with the provided stages.
func NewRegistry(stages ...Stage) *Registry {
	registry := &Registry{}
	for _, s := range stages {
		registry.Register(s)
	}
	return registry
}

// Register appends a stage.
func (r *Registry) Register(s Stage) {
	if s == nil {
		return
	}
	r.stages = append(r.stages, s)
}

// Stages returns the registered stages in the order they were added.
func (r *Registry) Stages() []Stage {
	stages := make([]Stage, len(r.stages))
	copy(stages, r.stages)
	return stages
}
