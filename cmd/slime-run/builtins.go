package main

import (
	"fmt"
	"time"

	"github.com/SlimeAI/slime-core/pkg/config"
	"github.com/SlimeAI/slime-core/pkg/pipeline"
)

// Builtin handler and wrapper kinds available to every spec file without
// custom registration.
func init() {
	config.Handlers.MustRegister("log", newLogHandler)
	config.Handlers.MustRegister("sleep", newSleepHandler)
	config.Handlers.MustRegister("fail", newFailHandler)
	config.Handlers.MustRegister("terminate", newTerminateHandler)
	config.Handlers.MustRegister("break", newBreakHandler)
	config.Handlers.MustRegister("continue", newContinueHandler)

	config.Wrappers.MustRegister("timer", newTimerWrapper)
	config.Wrappers.MustRegister("suppress", newSuppressWrapper)
}

func stringOption(cfg map[string]any, key, fallback string) string {
	if v, ok := cfg[key].(string); ok {
		return v
	}
	return fallback
}

func newLogHandler(cfg map[string]any) (pipeline.Handler, error) {
	message := stringOption(cfg, "message", "")
	if message == "" {
		return nil, fmt.Errorf("log handler requires a message")
	}
	return pipeline.NewFuncHandler(func(ctx *pipeline.Context) error {
		ctx.Logger.Info(message, "run_id", ctx.RunID)
		return nil
	}), nil
}

func newSleepHandler(cfg map[string]any) (pipeline.Handler, error) {
	duration, err := time.ParseDuration(stringOption(cfg, "duration", "1s"))
	if err != nil {
		return nil, fmt.Errorf("sleep handler: %w", err)
	}
	return pipeline.NewFuncHandler(func(ctx *pipeline.Context) error {
		select {
		case <-time.After(duration):
			return nil
		case <-ctx.StdContext().Done():
			return ctx.StdContext().Err()
		}
	}), nil
}

func newFailHandler(cfg map[string]any) (pipeline.Handler, error) {
	message := stringOption(cfg, "message", "deliberate failure")
	return pipeline.NewFuncHandler(func(*pipeline.Context) error {
		return fmt.Errorf("%s", message)
	}), nil
}

func newTerminateHandler(cfg map[string]any) (pipeline.Handler, error) {
	reason := stringOption(cfg, "reason", "terminate handler reached")
	return pipeline.NewFuncHandler(func(*pipeline.Context) error {
		return pipeline.NewTerminate(reason)
	}), nil
}

func newBreakHandler(map[string]any) (pipeline.Handler, error) {
	return pipeline.NewFuncHandler(func(*pipeline.Context) error {
		return pipeline.Break
	}), nil
}

func newContinueHandler(map[string]any) (pipeline.Handler, error) {
	return pipeline.NewFuncHandler(func(*pipeline.Context) error {
		return pipeline.Continue
	}), nil
}

// newTimerWrapper logs the wall time of the wrapped execution.
func newTimerWrapper(map[string]any) (*pipeline.Wrapper, error) {
	var start time.Time
	return pipeline.WrapFuncs(
		func(*pipeline.Context, pipeline.Handler) (pipeline.Decision, error) {
			start = time.Now()
			return pipeline.Proceed, nil
		},
		func(ctx *pipeline.Context, wrapped pipeline.Handler, outcome error) error {
			ctx.Logger.Info("handler timing",
				"handler_id", wrapped.ID(),
				"duration", time.Since(start).String(),
			)
			return outcome
		},
	), nil
}

// newSuppressWrapper swallows handler failures, letting the run continue.
// Control signals pass through untouched.
func newSuppressWrapper(map[string]any) (*pipeline.Wrapper, error) {
	return pipeline.WrapFuncs(
		nil,
		func(ctx *pipeline.Context, wrapped pipeline.Handler, outcome error) error {
			if outcome == nil || pipeline.IsContinue(outcome) || pipeline.IsBreak(outcome) {
				return outcome
			}
			if _, terminating := pipeline.AsTerminate(outcome); terminating {
				return outcome
			}
			ctx.Logger.Warn("suppressing handler failure",
				"handler_id", wrapped.ID(),
				"error", outcome,
			)
			return nil
		},
	), nil
}
