package plugin

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/voixagent/voixagent/errors"
	"github.com/voixagent/voixagent/logger"
)

// StageReport describes one stage execution.
type StageReport struct {
	Plugin   string
	Duration time.Duration
	// Err is set when the stage failed and its result was discarded.
	Err      error
	Terminal bool
	// Discarded is set when a non-terminal rewrite followed a terminal
	// result and was ignored.
	Discarded bool
}

// Outcome is the result of running every stage for one turn.
type Outcome struct {
	Message  string
	Terminal bool
	// Failed lists the stages that errored, in order.
	Failed []string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for stage failures.
func WithLogger(log *logger.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithObserver registers a callback invoked after every stage.
func WithObserver(fn func(context.Context, StageReport)) Option {
	return func(p *Pipeline) { p.observe = fn }
}

// Pipeline is the ordered stage list of one session. Plugin instances are
// private to the pipeline.
type Pipeline struct {
	stages  []Plugin
	log     *logger.Logger
	observe func(context.Context, StageReport)
}

// New creates a Pipeline running stages in order.
func New(stages []Plugin, opts ...Option) *Pipeline {
	p := &Pipeline{
		stages: append([]Plugin(nil), stages...),
		log:    logger.Get("plugins"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Names returns the effective stage order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Len returns the number of stages.
func (p *Pipeline) Len() int { return len(p.stages) }

// Run passes message through every stage. It never fails: a failing stage is
// logged and treated as a no-op.
func (p *Pipeline) Run(ctx context.Context, message string, tc TurnContext) Outcome {
	if tc == nil {
		tc = TurnContext{}
	}
	out := Outcome{Message: message}
	for _, stage := range p.stages {
		start := time.Now()
		res, err := p.call(ctx, stage, out.Message, tc)
		report := StageReport{Plugin: stage.Name(), Duration: time.Since(start)}

		switch {
		case err != nil:
			report.Err = err
			out.Failed = append(out.Failed, stage.Name())
			p.log.WithContext(ctx).Error("plugin failed, message passed through",
				logger.MergeWithError(logger.Fields(logger.FieldPlugin, stage.Name()), err))
		case res.Terminal:
			out.Message = res.Message
			out.Terminal = true
			report.Terminal = true
		case out.Terminal:
			report.Discarded = res.Message != out.Message
		default:
			out.Message = res.Message
		}

		if p.observe != nil {
			p.observe(ctx, report)
		}
	}
	return out
}

func (p *Pipeline) call(ctx context.Context, stage Plugin, message string, tc TurnContext) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.PluginExecution(stage.Name(), fmt.Errorf("panic: %v", r))
		}
	}()
	res, err = stage.Process(ctx, message, tc)
	if err != nil {
		return Result{}, errors.PluginExecution(stage.Name(), err)
	}
	return res, nil
}

// Close releases plugins that hold resources.
func (p *Pipeline) Close(ctx context.Context) error {
	var errs []error
	for _, s := range p.stages {
		if c, ok := s.(interface{ Close(context.Context) error }); ok {
			if err := c.Close(ctx); err != nil {
				errs = append(errs, fmt.Errorf("plugin %s: %w", s.Name(), err))
			}
		}
	}
	return stderrors.Join(errs...)
}
