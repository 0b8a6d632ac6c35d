package installer

import (
	"fmt"

	"github.com/cqcsystem/cqcsrv/pkg/cqcerrors"
)

// ValidationError collects every rule violation found for a plan, rather
// than failing fast on the first one, so the installer surface can
// highlight every offending panel in one pass (spec.md §4.3.1 / §7 "the
// installer surface displays the first offending panel").
type ValidationError struct {
	Violations []*cqcerrors.Error
}

func (v *ValidationError) Error() string {
	return fmt.Sprintf("installation plan rejected: %d rule violation(s)", len(v.Violations))
}

// FirstOffendingComponent returns the component named by the first
// recorded violation's "component" detail, if any, for driving the GUI
// to the right panel.
func (v *ValidationError) FirstOffendingComponent() (Component, bool) {
	if len(v.Violations) == 0 {
		return "", false
	}
	if c, ok := v.Violations[0].Details["component"].(Component); ok {
		return c, true
	}
	return "", false
}

// Validate runs R1-R4 against plan (pure, no filesystem or network
// access) and R5 (network bind-listen probes) against the host's
// available IP families. A plan that fails any rule is rejected with
// every violation recorded; the filesystem is never touched here.
func Validate(plan InstallationPlan, families HostFamilies) error {
	var violations []*cqcerrors.Error

	if err := checkR1(plan); err != nil {
		violations = append(violations, err)
	}
	if err := checkR2(plan); err != nil {
		violations = append(violations, err)
	}
	if err := checkR3(plan); err != nil {
		violations = append(violations, err)
	}
	violations = append(violations, checkR4(plan)...)
	violations = append(violations, checkR5(plan, families)...)

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// checkR1 enforces "MS-required components": EventServer or LogicServer
// enabled requires MasterServer enabled.
func checkR1(plan InstallationPlan) *cqcerrors.Error {
	if (plan.Enabled(EventServer) || plan.Enabled(LogicServer)) && !plan.Enabled(MasterServer) {
		return cqcerrors.PlanRejection("R1", "EventServer/LogicServer requires MasterServer")
	}
	return nil
}

// checkR2 enforces "MS-forces": MasterServer enabled requires WebServer.
func checkR2(plan InstallationPlan) *cqcerrors.Error {
	if plan.Enabled(MasterServer) && !plan.Enabled(WebServer) {
		return cqcerrors.PlanRejection("R2", "MasterServer requires WebServer").WithDetail("component", WebServer)
	}
	return nil
}

// checkR3 enforces "non-empty": at least one component selected.
func checkR3(plan InstallationPlan) *cqcerrors.Error {
	if len(plan.EnabledComponents()) == 0 {
		return cqcerrors.PlanRejection("R3", "no components selected")
	}
	return nil
}

// checkR4 enforces "port uniqueness" via a port-count array indexed
// 0..65535, exactly as spec.md §4.3.1 describes: each enabled component
// reports its port into the array, and any index with count > 1 fails.
func checkR4(plan InstallationPlan) []*cqcerrors.Error {
	var counts [65536]int
	var owners [65536][]Component

	for _, c := range plan.EnabledComponents() {
		port, ok := plan.Ports[c]
		if !ok {
			continue
		}
		if port < 0 || port > 65535 {
			continue
		}
		counts[port]++
		owners[port] = append(owners[port], c)
	}

	var errs []*cqcerrors.Error
	for port, n := range counts {
		if n > 1 {
			errs = append(errs, cqcerrors.PlanRejection("R4",
				fmt.Sprintf("port %d claimed by %d components", port, n)).
				WithDetail("port", port).
				WithDetail("components", owners[port]))
		}
	}
	return errs
}

// checkR5 enforces "port freeness": every unique port in the plan must
// not be in use on any of the host's available IP families (see
// ProbePortFree).
func checkR5(plan InstallationPlan, families HostFamilies) []*cqcerrors.Error {
	seen := make(map[int]bool)
	var errs []*cqcerrors.Error

	for _, c := range plan.EnabledComponents() {
		port, ok := plan.Ports[c]
		if !ok || seen[port] {
			continue
		}
		seen[port] = true

		if !ProbePortFree(port, families) {
			errs = append(errs, cqcerrors.PlanRejection("R5",
				fmt.Sprintf("port %d is already in use", port)).
				WithDetail("port", port).
				WithDetail("component", c))
		}
	}
	return errs
}
