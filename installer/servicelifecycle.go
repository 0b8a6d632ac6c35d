package installer

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/cqcsystem/cqcsrv/pkg/cqcerrors"
)

// GUIAppIdentifier names one known GUI application instance the installer
// must ask to close before staging (spec.md §4.3.5 step 1).
type GUIAppIdentifier struct {
	InstanceResourceName string
	DisplayName          string
	WindowTitle          string
}

const (
	closeAttempts    = 3
	closeWaitBetween = 2 * time.Second
	closeSettleWait  = 4 * time.Second
)

// CloseGUIApps posts a close request to every running instance of each
// identifier in apps, up to closeAttempts tries with closeWaitBetween
// between them, then waits closeSettleWait for processes to settle
// (spec.md §4.3.5 step 1). gopsutil enumerates the running process table;
// there is no portable "post WM_CLOSE" primitive in the pack's
// dependency set, so a close request is modeled as a graceful terminate
// signal to every process whose name matches an identifier.
func CloseGUIApps(ctx context.Context, apps []GUIAppIdentifier) error {
	names := make(map[string]GUIAppIdentifier, len(apps))
	for _, a := range apps {
		names[strings.ToLower(a.InstanceResourceName)] = a
	}

	for attempt := 0; attempt < closeAttempts; attempt++ {
		procs, err := process.ProcessesWithContext(ctx)
		if err != nil {
			return cqcerrors.InfrastructureFailure("CloseGUIApps", err)
		}

		anyRunning := false
		for _, p := range procs {
			name, err := p.NameWithContext(ctx)
			if err != nil {
				continue
			}
			if _, ok := names[strings.ToLower(name)]; !ok {
				continue
			}
			anyRunning = true
			_ = p.TerminateWithContext(ctx)
		}

		if !anyRunning {
			break
		}
		if attempt < closeAttempts-1 {
			time.Sleep(closeWaitBetween)
		}
	}

	time.Sleep(closeSettleWait)
	return nil
}

// ServiceController stops an OS service by name. The framework carries no
// third-party OS-service-manager library (none in the example pack covers
// Windows/systemd/launchd uniformly); the default implementation shells
// out to systemctl, matching how an installer script would invoke the
// platform's native service manager.
type ServiceController interface {
	Stop(ctx context.Context, serviceName string) error
}

// SystemctlController stops services via `systemctl stop <name>`.
type SystemctlController struct{}

const serviceStopTimeout = 60 * time.Second

// Stop invokes systemctl with a 60-second per-service timeout (spec.md
// §4.3.5 step 2). A stop failure aborts the plan.
func (SystemctlController) Stop(ctx context.Context, serviceName string) error {
	stopCtx, cancel := context.WithTimeout(ctx, serviceStopTimeout)
	defer cancel()

	cmd := exec.CommandContext(stopCtx, "systemctl", "stop", serviceName)
	if err := cmd.Run(); err != nil {
		return cqcerrors.InfrastructureFailure("StopOSServices", err).WithDetail("service", serviceName)
	}
	return nil
}

// StopOSServices stops every named service in order, aborting on the
// first failure (spec.md §4.3.5 step 2: "service stop failure aborts the
// plan").
func StopOSServices(ctx context.Context, ctrl ServiceController, serviceNames []string) error {
	for _, name := range serviceNames {
		if err := ctrl.Stop(ctx, name); err != nil {
			return err
		}
	}
	return nil
}
