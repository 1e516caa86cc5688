package pipeline

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/SlimeAI/slime-core/pkg/telemetry"
)

// Assemble builds the handler tree for phase inside the assembly bracket:
// the launch scope opens first, then the plugin scopes, then the build hook
// runs, and every opened scope closes in reverse order whether or not the
// build succeeded. Each after phase observes the bracket's failure.
//
// The first error wins: a close error surfacing during the unwind of an
// already failed bracket is logged, not returned.
func Assemble(ctx *Context, phase Phase) error {
	tracer := otel.Tracer(tracerName)
	stdCtx, span := tracer.Start(ctx.StdContext(), "pipeline.assemble",
		trace.WithAttributes(
			attribute.String("run.id", ctx.RunID),
			attribute.String("phase", string(phase)),
		),
	)
	prev := ctx.traceCtx
	ctx.traceCtx = stdCtx
	defer func() {
		ctx.traceCtx = prev
		span.End()
	}()

	if ctx.Hooks.Build == nil {
		err := fmt.Errorf("pipeline: no build hook configured for phase %q", phase)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	var scopes []PhaseHook
	if ctx.Hooks.Launch != nil {
		scopes = append(scopes, ctx.Hooks.Launch)
	}
	if ctx.Hooks.Plugins != nil {
		scopes = append(scopes, ctx.Hooks.Plugins)
	}

	var failure error
	opened := 0
	for _, scope := range scopes {
		if err := scope.BeforeBuild(ctx, phase); err != nil {
			failure = err
			break
		}
		opened++
	}

	if failure == nil {
		ctx.log().Info("assembling handler tree",
			"run_id", ctx.RunID,
			"phase", string(phase),
		)
		failure = ctx.Hooks.Build.BuildPhase(ctx, phase)
	}

	for i := opened - 1; i >= 0; i-- {
		if err := scopes[i].AfterBuild(ctx, phase, failure); err != nil {
			if failure == nil {
				failure = err
			} else {
				ctx.log().Error("assembly scope close failed during unwind",
					"phase", string(phase),
					"error", err,
				)
			}
		}
	}

	status := "success"
	if failure != nil {
		status = "failure"
		span.RecordError(failure)
		span.SetStatus(codes.Error, failure.Error())
	}
	telemetry.Default().ObserveBuild(string(phase), status)
	span.SetAttributes(attribute.String("build.status", status))

	return failure
}
