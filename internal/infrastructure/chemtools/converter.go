// Package chemtools adapts the external chemistry programs used around
// docking: format conversion and pose rescoring.
package chemtools

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/turtacn/DockFlow/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DockFlow/internal/infrastructure/process"
	"github.com/turtacn/DockFlow/pkg/errors"
)

const (
	DefaultObabel    = "obabel"
	DefaultConverter = "oeconvert"
)

// ConverterOptions names the conversion programs.
type ConverterOptions struct {
	// Obabel converts single poses from SD to PDB.
	Obabel string
	// Generic converts between any two formats, given as "<tool> <in> <out>".
	Generic string
	Timeout time.Duration
	// Env is added to the environment of every conversion, e.g. a license.
	Env map[string]string
}

// Converter converts molecule files through external programs.
type Converter struct {
	runner process.Runner
	opts   ConverterOptions
	logger logging.Logger
}

// NewConverter returns a Converter. Empty program names take their defaults.
func NewConverter(runner process.Runner, opts ConverterOptions, logger logging.Logger) *Converter {
	if opts.Obabel == "" {
		opts.Obabel = DefaultObabel
	}
	if opts.Generic == "" {
		opts.Generic = DefaultConverter
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Converter{runner: runner, opts: opts, logger: logger.Named("converter")}
}

// PDBPath returns the PDB path SDFToPDB writes for sdf.
func PDBPath(sdf string) string {
	return strings.TrimSuffix(sdf, ".sdf") + ".pdb"
}

// SDFToPDB converts a pose to PDB next to it and returns the new path.
// The converter's standard output is the PDB text.
func (c *Converter) SDFToPDB(ctx context.Context, sdf string) (string, error) {
	pdb := PDBPath(sdf)
	out, err := os.Create(pdb)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStructureWrite, "cannot create converted pose").WithDetail(pdb)
	}

	_, runErr := c.runner.Run(ctx, process.Command{
		Name:    c.opts.Obabel,
		Args:    []string{"-isdf", sdf, "-opdb"},
		Env:     c.opts.Env,
		Stdout:  out,
		Timeout: c.opts.Timeout,
		Tool:    "obabel",
	})
	closeErr := out.Close()
	if runErr != nil {
		_ = os.Remove(pdb)
		return "", runErr
	}
	if closeErr != nil {
		return "", errors.Wrap(closeErr, errors.ErrCodeStructureWrite, "cannot write converted pose").WithDetail(pdb)
	}
	if err := requireOutput(pdb); err != nil {
		_ = os.Remove(pdb)
		return "", err
	}
	return pdb, nil
}

// Convert runs the generic converter on in, producing out. The formats are
// taken from the file extensions by the converter itself.
func (c *Converter) Convert(ctx context.Context, in, out string) error {
	if _, err := c.runner.Run(ctx, process.Command{
		Name:    c.opts.Generic,
		Args:    []string{in, out},
		Env:     c.opts.Env,
		Timeout: c.opts.Timeout,
		Tool:    "convert",
	}); err != nil {
		return err
	}
	return requireOutput(out)
}

func requireOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeToolOutputMissing, "converter produced no file").WithDetail(path)
	}
	if info.Size() == 0 {
		return errors.New(errors.ErrCodeToolOutputMissing, "converter produced an empty file").WithDetail(path)
	}
	return nil
}

//Personal.AI order the ending
