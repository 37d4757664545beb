package docking

import (
	"context"

	"github.com/turtacn/DockFlow/internal/infrastructure/chemtools"
	"github.com/turtacn/DockFlow/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DockFlow/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/DockFlow/internal/infrastructure/process"
)

// Converter turns docking output into PDB files.
type Converter interface {
	SDFToPDB(ctx context.Context, sdf string) (string, error)
	Convert(ctx context.Context, in, out string) error
}

// Deps are the collaborators of a driver. Nil fields are replaced with
// PATH-based defaults by the constructors.
type Deps struct {
	Runner    process.Runner
	Converter Converter
	Scorer    chemtools.Scorer
	Logger    logging.Logger
	Metrics   *prometheus.DockingMetrics
}

func (d Deps) withDefaults() Deps {
	d = d.withBase()
	if d.Converter == nil {
		d.Converter = chemtools.NewConverter(d.Runner, chemtools.ConverterOptions{}, d.Logger)
	}
	return d
}

func (d Deps) withBase() Deps {
	if d.Logger == nil {
		d.Logger = logging.NewNopLogger()
	}
	if d.Metrics == nil {
		d.Metrics = prometheus.NewNoopDockingMetrics()
	}
	if d.Runner == nil {
		d.Runner = process.NewRunner(d.Logger, d.Metrics)
	}
	return d
}

//Personal.AI order the ending
