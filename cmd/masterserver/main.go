// Command masterserver is a CQCServer-family process driven end to end by
// the Server Lifecycle Engine: it registers an Admin Control Endpoint,
// publishes its name-service binding, and keeps that binding alive with a
// Rebinder until AdminStop or a process signal arrives.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/cqcsystem/cqcsrv/admin"
	"github.com/cqcsystem/cqcsrv/internal/config"
	"github.com/cqcsystem/cqcsrv/lifecycle"
	"github.com/cqcsystem/cqcsrv/nameservice"
	"github.com/cqcsystem/cqcsrv/pkg/cqclog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load configuration: %v\n", err)
		os.Exit(int(lifecycle.InitFailed))
	}

	logger := cqclog.New(cqclog.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		Output:     cfg.LogOutput,
		FilePrefix: "masterserver",
	})

	descriptor := lifecycle.ServerDescriptor{
		ServiceName:            cfg.ServiceName,
		Description:            cfg.Description,
		DefaultPort:            cfg.DefaultPort,
		EventName:              cfg.EventName,
		RequiresLogin:          cfg.RequiresLogin,
		ConsumesIncomingEvents: true,
		ProducesOutgoingEvents: true,
	}

	var (
		adminSrv *admin.Server
		rebinder *nameservice.Rebinder
		binder   *nameservice.RedisBinder
	)

	hooks := lifecycle.Hooks{
		QueryAdminInfo: func() lifecycle.AdminInfo {
			return lifecycle.AdminInfo{
				BindingPath: cfg.AdminBindingTemplate,
				Description: cfg.Description,
			}
		},
		RegisterObjects: func(ctx context.Context, attempt int) lifecycle.StageResult {
			return lifecycle.ResultSuccess()
		},
		PreBindInit: func(ctx context.Context, attempt int) lifecycle.StageResult {
			binder = nameservice.NewRedisBinder(cfg.NameServiceAddr, 0)

			endpoint, err := admin.ResolveBinding(lifecycle.AdminInfo{
				BindingPath: cfg.AdminBindingTemplate,
				Description: cfg.Description,
			})
			if err != nil {
				return lifecycle.ResultFailed(err)
			}

			rebinder = nameservice.NewRebinder(binder, endpoint.BindingPath, cfg.AdminListenAddr, cfg.RebindInterval, logger)
			if err := rebinder.Start(ctx); err != nil {
				return lifecycle.ResultRetry(5*time.Second, err)
			}
			return lifecycle.ResultSuccess()
		},
		StartWorkers: func(ctx context.Context, attempt int) lifecycle.StageResult {
			return lifecycle.ResultSuccess()
		},
	}

	engine := lifecycle.NewEngine(descriptor, hooks, lifecycle.WithLogger(logger), lifecycle.WithVendor("CQC"))

	// The admin server itself depends on the engine (for AdminStop and
	// status) and on the binder built during PreBindInit, so it is
	// started from a goroutine once the engine becomes reachable rather
	// than from a stage hook directly.
	go func() {
		waitForStage(engine, lifecycle.PreBindInit)
		if binder == nil {
			return
		}
		endpoint, err := admin.ResolveBinding(engine.AdminInfo())
		if err != nil {
			logger.ForComponent("masterserver").Errorf("resolve admin binding: %v", err)
			return
		}
		adminSrv = admin.NewServer(engine, endpoint, admin.Config{
			ListenAddr:     cfg.AdminListenAddr,
			AuthToken:      []byte(cfg.AdminAuthToken),
			RateLimitRPS:   cfg.AdminRateLimitRPS,
			RateLimitBurst: cfg.AdminRateLimitBurst,
		}, logger, binder)

		if err := adminSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ForComponent("masterserver").Errorf("admin endpoint stopped: %v", err)
		}
	}()

	exitCode := engine.Run(context.Background(), os.Args[1:])

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if rebinder != nil {
		rebinder.Stop()
	}
	if adminSrv != nil {
		adminSrv.Shutdown(shutdownCtx)
	}

	logger.ForComponent("masterserver").Infof("exiting with code %s", exitCode)
	os.Exit(int(exitCode))
}

// waitForStage polls until the engine's high-water-mark stage reaches at
// least target, giving up after 300 polls of 50ms (15 seconds), avoiding a
// hard dependency between the admin HTTP goroutine and the hook table's
// closures.
func waitForStage(e *lifecycle.Engine, target lifecycle.Stage) {
	for i := 0; i < 300; i++ {
		if e.Stage() >= target {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
}

