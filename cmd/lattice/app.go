package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/lcgerke/lattice/internal/config"
	"github.com/lcgerke/lattice/internal/domain"
	"github.com/lcgerke/lattice/internal/gating"
	"github.com/lcgerke/lattice/internal/gitrepo"
	"github.com/lcgerke/lattice/internal/lifecycle"
	"github.com/lcgerke/lattice/internal/logging"
	"github.com/lcgerke/lattice/internal/storage"
	"github.com/lcgerke/lattice/internal/ui"
)

// app bundles the collaborators every command needs, opened once per
// invocation from the current working directory.
type app struct {
	repo      *gitrepo.Repo
	cfg       config.Config
	cfgMgr    *config.Manager
	metaStore *storage.MetadataStore
	ledger    *storage.Ledger
	logger    *zap.SugaredLogger
	out       *ui.Output
}

// openApp discovers the repository at path, loads configuration, and wires
// the durable substrate (git handle, metadata store, ledger) plus the
// config/logging/output layers every command needs.
func openApp(path string, allowBare bool) (*app, error) {
	repo, err := gitrepo.Open(path, allowBare)
	if err != nil {
		return nil, err
	}

	if err := storage.EnsureSharedDir(repo.CommonDir()); err != nil {
		return nil, err
	}

	mgr := config.NewManager(repo.CommonDir())
	cfg, err := mgr.Load()
	if err != nil {
		return nil, err
	}

	log, err := logging.New(verbose)
	if err != nil {
		log = logging.Noop()
	}

	out := ui.NewOutput(os.Stdout)
	if format != "" {
		out.SetFormat(ui.OutputFormat(format))
	}
	if noColor {
		out.SetColorEnabled(false)
	}

	return &app{
		repo:      repo,
		cfg:       cfg,
		cfgMgr:    mgr,
		metaStore: storage.NewMetadataStore(repo),
		ledger:    storage.NewLedger(repo),
		logger:    log,
		out:       out,
	}, nil
}

// deps builds the lifecycle.Deps this app's collaborators satisfy.
func (a *app) deps() lifecycle.Deps {
	return lifecycle.Deps{
		Repo:      a.repo,
		MetaStore: a.metaStore,
		Ledger:    a.ledger,
		CommonDir: a.repo.CommonDir(),
		Trunk:     domain.BranchName(a.cfg.Trunk),
		Logger:    a.logger,
	}
}

// reportRepair prints a blocked-gate RepairBundle to the user, pointing
// them at `lattice doctor` to resolve it.
func (a *app) reportRepair(command string, repair *gating.RepairBundle) {
	a.out.Error(fmt.Sprintf("%s is blocked: missing capabilities %v", command, repair.MissingCapabilities))
	a.out.Info("run `lattice doctor` to diagnose and repair the underlying issue")
}
