package main

import (
	"context"
	"fmt"
	"os"

	"ontodraft/internal/config"
	"ontodraft/internal/draft"
	"ontodraft/internal/inherit"
	"ontodraft/internal/overlay"
	"ontodraft/internal/rebase"
	"ontodraft/internal/schemarepo"
	"ontodraft/internal/shape"
	"ontodraft/internal/store"
	"ontodraft/internal/store/postgres"
	"ontodraft/internal/store/sqlite"
	"ontodraft/internal/validate"
)

const (
	configPath = "ontodraft.yaml"
	shapesPath = "shapes.yaml"
)

func openDB(ctx context.Context, cfg *config.ProjectConfig) (store.Store, error) {
	switch cfg.Database.Driver {
	case "postgres":
		return postgres.New(ctx, cfg.Database.DSN)
	case "sqlite":
		return sqlite.New(ctx, cfg.Database.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
}

// loadChecker returns a nil checker when shapes.yaml is absent; shape checks
// are opt-in.
func loadChecker() (shape.Checker, error) {
	if _, err := os.Stat(shapesPath); os.IsNotExist(err) {
		return nil, nil
	}
	shapes, err := config.LoadShapes(shapesPath)
	if err != nil {
		return nil, err
	}
	return shape.NewConfigChecker(shapes), nil
}

func newValidator(db store.Store, cfg *config.ProjectConfig, checker shape.Checker) *validate.Engine {
	ov := overlay.NewEngine(db)
	resolver := inherit.NewResolver(db, ov, cfg.Limits.MaxInheritanceDepth)
	return validate.NewEngine(db, ov, resolver, checker)
}

func newWorkflow(db store.Store, cfg *config.ProjectConfig, checker shape.Checker) *draft.Controller {
	host := schemarepo.NewHTTPHost(
		cfg.SchemaRepo.APIBase,
		cfg.SchemaRepo.Repository,
		os.Getenv(cfg.SchemaRepo.TokenEnv),
	)
	return draft.NewController(db, newValidator(db, cfg, checker), rebase.NewEngine(db), host, cfg.SchemaRepo.BaseBranch)
}
