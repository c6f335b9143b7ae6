// Package main provides data seeding for the CellMesh control plane.
//
// The seed file declares configuration parameters and pre-provisioned cells
// so a fresh environment can serve traffic without going through the async
// provisioning pipeline. Seeding is idempotent: existing rows are skipped.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"cellmesh.io/cellmesh/internal/config"
	"cellmesh.io/cellmesh/internal/domain"
	"cellmesh.io/cellmesh/internal/infrastructure"
	apperrors "cellmesh.io/cellmesh/internal/pkg/errors"
	"cellmesh.io/cellmesh/internal/pkg/logger"
	"cellmesh.io/cellmesh/internal/repository"
	"cellmesh.io/cellmesh/internal/repository/postgres"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	seedPath := flag.String("file", "seed.yaml", "path to the seed file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	seed, err := loadSeedFile(*seedPath)
	if err != nil {
		return fmt.Errorf("load seed file: %w", err)
	}

	ctx := context.Background()

	db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(ctx); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}

	logger.Info("Starting data seeding...", zap.String("file", *seedPath))

	if err := seedParams(ctx, postgres.NewParamStore(db.Pool), seed.Params); err != nil {
		return fmt.Errorf("seed params: %w", err)
	}
	if err := seedCells(ctx, postgres.NewCellStore(db.Pool), seed.Cells); err != nil {
		return fmt.Errorf("seed cells: %w", err)
	}

	logger.Info("Data seeding completed successfully")
	return nil
}

// seedFile is the on-disk seed declaration.
type seedFile struct {
	Params map[string]string `yaml:"params"`
	Cells  []seedCell        `yaml:"cells"`
}

// seedCell declares one cell. When CellURL is set the cell is seeded as
// available (provisioning already happened out of band); otherwise it lands
// in creating and waits for a completion callback.
type seedCell struct {
	CellID     string `yaml:"cell_id"`
	CellName   string `yaml:"cell_name"`
	CellSize   int    `yaml:"cell_size"`
	WaveNumber int    `yaml:"wave_number"`
	CellURL    string `yaml:"cell_url"`
}

func (c seedCell) validate() error {
	if c.CellName == "" {
		return fmt.Errorf("cell_name is required")
	}
	if c.CellSize <= 0 {
		return fmt.Errorf("cell %s: cell_size must be positive", c.CellName)
	}
	if c.WaveNumber < 0 {
		return fmt.Errorf("cell %s: wave_number must not be negative", c.CellName)
	}
	return nil
}

func loadSeedFile(path string) (*seedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseSeedFile(data)
}

func parseSeedFile(data []byte) (*seedFile, error) {
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	for _, cell := range seed.Cells {
		if err := cell.validate(); err != nil {
			return nil, err
		}
	}
	return &seed, nil
}

// seedParams upserts configuration parameters. Parameter writes are
// last-write-wins, so re-running the seed refreshes values.
func seedParams(ctx context.Context, params repository.ParamStore, values map[string]string) error {
	for name, value := range values {
		if err := params.Set(ctx, name, value); err != nil {
			return fmt.Errorf("set param %s: %w", name, err)
		}
		logger.Info("Seeded parameter", zap.String("name", name))
	}
	return nil
}

// seedCells inserts declared cells, skipping ids that already exist.
func seedCells(ctx context.Context, cells repository.CellStore, declared []seedCell) error {
	for _, sc := range declared {
		id := sc.CellID
		if id == "" {
			id = domain.NewCellID()
		}

		if _, err := cells.Get(ctx, id); err == nil {
			logger.Info("Cell already exists, skipping", zap.String("cell_id", id))
			continue
		} else if !errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("check cell %s: %w", id, err)
		}

		cell := &domain.Cell{
			ID:          id,
			Name:        sc.CellName,
			MaxCapacity: sc.CellSize,
			WaveNumber:  sc.WaveNumber,
			Status:      domain.CellStatusCreating,
		}
		if err := cells.Insert(ctx, cell); err != nil {
			return fmt.Errorf("insert cell %s: %w", id, err)
		}

		if sc.CellURL != "" {
			applied, err := cells.CompleteCreation(ctx, id, sc.CellURL, sc.CellSize, nil)
			if err != nil {
				return fmt.Errorf("complete cell %s: %w", id, err)
			}
			if !applied {
				return fmt.Errorf("complete cell %s: unexpected status", id)
			}
		}

		logger.Info("Seeded cell",
			zap.String("cell_id", id),
			zap.String("cell_name", sc.CellName),
			zap.Bool("available", sc.CellURL != ""),
		)
	}
	return nil
}
