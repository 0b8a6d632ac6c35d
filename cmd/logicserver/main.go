// Command logicserver is a CQCServer-family process that requires a login
// before it can register its admin object, driven end to end by the
// Server Lifecycle Engine.
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
	cfg.RequiresLogin = true

	logger := cqclog.New(cqclog.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		Output:     cfg.LogOutput,
		FilePrefix: "logicserver",
	})

	descriptor := lifecycle.ServerDescriptor{
		ServiceName:            cfg.ServiceName,
		Description:            cfg.Description,
		DefaultPort:            cfg.DefaultPort,
		EventName:              cfg.EventName,
		RequiresLogin:          cfg.RequiresLogin,
		ConsumesIncomingEvents: true,
		ProducesOutgoingEvents: false,
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
	}

	engine := lifecycle.NewEngine(descriptor, hooks,
		lifecycle.WithLogger(logger),
		lifecycle.WithVendor("CQC"),
		lifecycle.WithSecurityClientFactory(noopSecurityClientFactory),
	)

	go func() {
		waitForStage(engine, lifecycle.PreBindInit)
		if binder == nil {
			return
		}
		endpoint, err := admin.ResolveBinding(engine.AdminInfo())
		if err != nil {
			logger.ForComponent("logicserver").Errorf("resolve admin binding: %v", err)
			return
		}
		adminSrv = admin.NewServer(engine, endpoint, admin.Config{
			ListenAddr:     cfg.AdminListenAddr,
			AuthToken:      []byte(cfg.AdminAuthToken),
			RateLimitRPS:   cfg.AdminRateLimitRPS,
			RateLimitBurst: cfg.AdminRateLimitBurst,
		}, logger, binder)

		if err := adminSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ForComponent("logicserver").Errorf("admin endpoint stopped: %v", err)
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

	logger.ForComponent("logicserver").Infof("exiting with code %s", exitCode)
	os.Exit(int(exitCode))
}

// noopSecurityClientFactory stands in for the real ORB security service
// lookup a derived server would supply; the framework itself owns no
// transport (spec.md §1 Non-goals).
func noopSecurityClientFactory(ctx context.Context) (lifecycle.SecurityClient, error) {
	return nil, fmt.Errorf("no security client factory configured for this deployment")
}

func waitForStage(e *lifecycle.Engine, target lifecycle.Stage) {
	for i := 0; i < 300; i++ {
		if e.Stage() >= target {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
}
