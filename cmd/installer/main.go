// Command installer hosts the Installer Validation & Swap Engine (IVSE)
// behind a headless HTTP API: validate a plan, run a validated plan
// (close GUI apps, stop OS services, stage, swap), and stream progress to
// any connected observer.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/cqcsystem/cqcsrv/installer"
	"github.com/cqcsystem/cqcsrv/installer/api"
	"github.com/cqcsystem/cqcsrv/installer/history"
	"github.com/cqcsystem/cqcsrv/installer/progress"
	"github.com/cqcsystem/cqcsrv/internal/config"
	"github.com/cqcsystem/cqcsrv/pkg/cqclog"
)

// planRunner implements api.Runner: it runs the full install pipeline
// described in spec.md §4.3 steps 1-5 against a single InstallationPlan.
type planRunner struct {
	cfg     *config.Config
	pub     *progress.Publisher
	store   history.Store
	logger  *cqclog.Logger
	staging string
}

func (r *planRunner) Run(plan installer.InstallationPlan) error {
	ctx := context.Background()
	log := r.logger.ForComponent("installer")

	target := plan.TargetInstallPath
	if target == "" {
		target = r.cfg.InstallTargetPath
	}
	source := plan.SourceImagePath
	if source == "" {
		source = r.cfg.InstallSourceImage
	}

	candidate := installer.Version{Major: 5, Minor: 2, Revision: 0}
	if err := installer.CheckUpgradeEligibility(target, candidate); err != nil {
		return err
	}
	oldVersion, _, err := installer.ReadVersionInfo(target)
	if err != nil {
		return err
	}

	if err := installer.CloseGUIApps(ctx, []installer.GUIAppIdentifier{
		{InstanceResourceName: "CQCIntfViewer", DisplayName: "CQC Interface Viewer"},
		{InstanceResourceName: "CQCClTray", DisplayName: "CQC Client Tray"},
	}); err != nil {
		log.Warnf("close GUI apps: %v", err)
	}

	if err := installer.StopOSServices(ctx, installer.SystemctlController{}, r.serviceNamesFor(plan)); err != nil {
		return err
	}

	if err := installer.PrepareStagingDir(r.staging); err != nil {
		return err
	}

	entries, err := installer.EnumerateSourceImage(source)
	if err != nil {
		return err
	}
	if err := installer.StageFiles(entries, r.staging, r.pub); err != nil {
		return err
	}

	now := time.Now()
	if err := installer.Swap(r.staging, target, oldVersion, now); err != nil {
		return err
	}
	if err := installer.WriteVersionInfo(target, candidate); err != nil {
		log.Warnf("write version info: %v", err)
	}

	if r.store != nil {
		rec := history.Record{
			OldVersion:   oldVersion.String(),
			NewVersion:   candidate.String(),
			RecoveryPath: filepath.Join(filepath.Dir(target), installer.RecoveryDirName(oldVersion, now)),
			Components:   componentList(plan),
			Outcome:      "committed",
			RanAt:        now,
		}
		if err := r.store.Record(ctx, rec); err != nil {
			log.Warnf("record install history: %v", err)
		}
	}

	return nil
}

func (r *planRunner) serviceNamesFor(plan installer.InstallationPlan) []string {
	var names []string
	for _, c := range plan.EnabledComponents() {
		names = append(names, "cqc-"+string(c))
	}
	return names
}

func componentList(plan installer.InstallationPlan) string {
	var out string
	for i, c := range plan.EnabledComponents() {
		if i > 0 {
			out += ","
		}
		out += string(c)
	}
	return out
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := cqclog.New(cqclog.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		Output:     cfg.LogOutput,
		FilePrefix: "installer",
	})

	var store history.Store
	if cfg.InstallHistoryDSN != "" {
		if err := history.Migrate(cfg.InstallHistoryDSN); err != nil {
			logger.ForComponent("installer").Fatalf("apply history migrations: %v", err)
		}
		pg, err := history.NewPostgresStore(cfg.InstallHistoryDSN)
		if err != nil {
			logger.ForComponent("installer").Fatalf("connect install history store: %v", err)
		}
		defer pg.Close()
		store = pg
	}

	pub := progress.NewPublisher()
	runner := &planRunner{
		cfg:     cfg,
		pub:     pub,
		store:   store,
		logger:  logger,
		staging: filepath.Join(os.TempDir(), "cqcsrv-install-staging-"+uuid.NewString()),
	}

	apiSrv := api.NewServer(runner, pub, store, logger)

	addr := cfg.AdminListenAddr
	if addr == "" {
		addr = ":13600"
	}
	logger.ForComponent("installer").Infof("installer API listening on %s", addr)
	if err := http.ListenAndServe(addr, apiSrv.Router()); err != nil {
		logger.ForComponent("installer").Fatalf("installer API stopped: %v", err)
	}
}
