package app

import (
	"context"

	"go.uber.org/fx"

	"github.com/camposclima/heliomorph/internal/analyze"
	"github.com/camposclima/heliomorph/internal/climatology"
	"github.com/camposclima/heliomorph/internal/config"
	"github.com/camposclima/heliomorph/internal/consolidate"
	"github.com/camposclima/heliomorph/internal/gridreader"
	"github.com/camposclima/heliomorph/internal/metrics"
	"github.com/camposclima/heliomorph/internal/morph"
	"github.com/camposclima/heliomorph/internal/pipeline"
	"github.com/camposclima/heliomorph/internal/profile"
	"github.com/camposclima/heliomorph/internal/repository"
	"github.com/camposclima/heliomorph/internal/simulate"
	"github.com/camposclima/heliomorph/internal/storage"
	gcsstorage "github.com/camposclima/heliomorph/internal/storage/gcs"
	localstorage "github.com/camposclima/heliomorph/internal/storage/local"
	"github.com/camposclima/heliomorph/internal/telemetry"
	"github.com/camposclima/heliomorph/internal/validate"
	"github.com/camposclima/heliomorph/pkg/support/logger"
)

// RunApplication assembles the Fx container and executes one command. It
// blocks until the command finishes or the context is cancelled.
func RunApplication(appCtx context.Context, envFilePath string, embeddedConfig config.EmbeddedConfig, command string, runOverrides map[string]interface{}) {
	app := fx.New(
		fx.Supply(
			embeddedConfig,
			fx.Annotate(envFilePath, fx.ResultTags(`name:"envFilePath"`)),
			fx.Annotate(runOverrides, fx.ResultTags(`name:"runOverrides"`)),
			fx.Annotate(
				appCtx,
				fx.As(new(context.Context)),
				fx.ResultTags(`name:"appCtx"`),
			),
		),
		config.Module,
		telemetry.Module,
		metrics.Module,

		localstorage.Module,
		gcsstorage.Module,
		storage.Module,

		gridreader.Module,
		climatology.Module,
		profile.Module,
		morph.Module,
		validate.Module,
		simulate.Module,
		consolidate.Module,
		repository.Module,
		analyze.Module,
		pipeline.Module,
		Module,

		fx.Supply(fx.Annotate(command, fx.ResultTags(`name:"command"`))),

		fx.Invoke(fx.Annotate(startCommand, fx.ParamTags(
			"",               // lc fx.Lifecycle
			"",               // shutdowner fx.Shutdowner
			"",               // orchestrator *Orchestrator
			`name:"appCtx"`,  // appCtx context.Context
			`name:"command"`, // command string
		))),
	)

	app.Run()

	if app.Err() != nil {
		logger.Fatalf("Application run failed: %v", app.Err())
	}
}

// startCommand launches the orchestrator once the container is up and shuts
// the application down when it finishes.
func startCommand(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	orchestrator *Orchestrator,
	appCtx context.Context,
	command string,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer func() {
					if r := recover(); r != nil {
						logger.Errorf("Panic recovered in command execution: %v", r)
					}
					if err := shutdowner.Shutdown(); err != nil {
						logger.Errorf("Failed to shutdown application: %v", err)
					}
				}()

				logger.Infof("Executing command '%s'...", command)
				if err := orchestrator.Run(appCtx, command); err != nil {
					logger.Errorf("Command '%s' failed: %v", command, err)
					return
				}
				logger.Infof("Command '%s' completed.", command)
			}()
			return nil
		},
	})
}
