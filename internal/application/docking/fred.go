package docking

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/turtacn/DockFlow/internal/domain/structure"
	"github.com/turtacn/DockFlow/internal/infrastructure/chemtools"
	"github.com/turtacn/DockFlow/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DockFlow/internal/infrastructure/process"
	"github.com/turtacn/DockFlow/pkg/errors"
)

// FredLog is the tool log of a pocket-search run.
const FredLog = "dock_log"

// LicenseEnv is the variable the OpenEye tools read their license from.
const LicenseEnv = "OE_LICENSE"

var pocketFilePattern = regexp.MustCompile(`^pocket(\d+)_atm\.pdb$`)

// FredSummary is the outcome of a pocket-search docking run.
type FredSummary struct {
	Label  string
	RunDir string
	// Receptor is the design unit docked against.
	Receptor string
	Ligands  string
	Docked   string
	// Report is empty when the report tool failed.
	Report string
	// SiteResidue is set when the binding site had to be detected.
	SiteResidue string
	Complexes   []string
}

// Fred drives one pocket-search docking run with the OpenEye tools.
type Fred struct {
	opts   FredOptions
	deps   Deps
	logger logging.Logger

	label    string
	runDir   string
	receptor string
	ligands  string
	log      *os.File

	oeReceptor  string
	oeLigands   string
	docked      string
	siteResidue string
}

// NewFred validates opts, creates <output>/run_<label>, copies the receptor
// into it and opens the tool log. Close releases the log.
func NewFred(opts FredOptions, deps Deps) (*Fred, error) {
	if opts.OutputDir == "" {
		opts.OutputDir = DefaultOutputDir
	}
	if opts.CPUs == 0 {
		opts.CPUs = DefaultCPUs
	}
	if opts.FpocketBin == "" {
		opts.FpocketBin = DefaultFpocket
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	for _, p := range []*string{&opts.Receptor, &opts.CompoundList, &opts.OutputDir} {
		abs, err := filepath.Abs(*p)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeOptionsInvalid, "cannot resolve path").WithDetail(*p)
		}
		*p = abs
	}

	f := &Fred{opts: opts, label: RunLabel(opts.Receptor)}
	deps = deps.withBase()
	if deps.Converter == nil {
		deps.Converter = chemtools.NewConverter(deps.Runner, chemtools.ConverterOptions{
			Generic: opts.ConvertBin,
			Timeout: opts.Timeout,
			Env:     f.env(),
		}, deps.Logger)
	}
	f.deps = deps
	f.logger = f.deps.Logger.Named(EngineFred).With(logging.String("label", f.label))

	f.runDir = filepath.Join(opts.OutputDir, "run_"+f.label)
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStructureWrite, "cannot create output directory").WithDetail(opts.OutputDir)
	}
	if err := os.Mkdir(f.runDir, 0o755); err != nil {
		if os.IsExist(err) {
			return nil, errors.New(errors.ErrCodeRunDirExists, "run directory already exists").WithDetail(f.runDir)
		}
		return nil, errors.Wrap(err, errors.ErrCodeStructureWrite, "cannot create run directory").WithDetail(f.runDir)
	}

	f.receptor = filepath.Join(f.runDir, filepath.Base(opts.Receptor))
	if err := copyFile(opts.Receptor, f.receptor); err != nil {
		return nil, err
	}
	f.ligands = opts.CompoundList

	logPath := filepath.Join(f.runDir, FredLog)
	log, err := os.Create(logPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStructureWrite, "cannot create docking log").WithDetail(logPath)
	}
	f.log = log
	return f, nil
}

// Close releases the tool log.
func (f *Fred) Close() error {
	if f.log == nil {
		return nil
	}
	err := f.log.Close()
	f.log = nil
	return err
}

// Label is the run label derived from the receptor file name.
func (f *Fred) Label() string { return f.label }

// RunDir is the absolute run directory.
func (f *Fred) RunDir() string { return f.runDir }

// Receptor is the copy of the receptor inside the run directory.
func (f *Fred) Receptor() string { return f.receptor }

func (f *Fred) tool(name string) string {
	if f.opts.ToolDir == "" || name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(f.opts.ToolDir, name)
}

func (f *Fred) env() map[string]string {
	if f.opts.License == "" {
		return nil
	}
	return map[string]string{LicenseEnv: f.opts.License}
}

func (f *Fred) mpiArgs() []string {
	if f.opts.CPUs > 1 {
		return []string{"-mpi_np", strconv.Itoa(f.opts.CPUs)}
	}
	return nil
}

func (f *Fred) run(ctx context.Context, name string, args ...string) error {
	cmd := process.Command{
		Name:    name,
		Args:    args,
		Dir:     f.runDir,
		Env:     f.env(),
		Timeout: f.opts.Timeout,
		Tool:    filepath.Base(name),
	}
	if f.log != nil {
		cmd.Log = f.log
	}
	f.logger.Info("running tool", logging.Tool(cmd.Tool), logging.String("command", cmd.String()))
	_, err := f.deps.Runner.Run(ctx, cmd)
	return err
}

// FindPocket runs the pocket detector on the receptor and returns the residue
// that occurs in most detected pockets, as "RES:NUM: :CHAIN". Pockets are read
// in numeric order and the first residue seen wins a tie.
func (f *Fred) FindPocket(ctx context.Context) (string, error) {
	start := time.Now()
	defer func() { f.deps.Metrics.RecordStage(EngineFred, "pocket", time.Since(start)) }()

	if err := f.run(ctx, f.opts.FpocketBin, "-f", f.receptor); err != nil {
		return "", errors.Wrap(err, errors.CodeUnknown, "pocket detection failed")
	}

	pocketDir := filepath.Join(f.runDir, structure.Label(f.receptor)+"_out", "pockets")
	files, err := pocketFiles(pocketDir)
	if err != nil {
		return "", err
	}

	counts := make(map[string]int)
	var order []string
	for _, path := range files {
		s, err := structure.Load(path)
		if err != nil {
			if errors.IsCode(err, errors.ErrCodeStructureEmpty) {
				continue
			}
			return "", err
		}
		for _, r := range s.Residues() {
			key := r.SiteLabel()
			if counts[key] == 0 {
				order = append(order, key)
			}
			counts[key]++
		}
	}

	best, bestCount := "", 0
	for _, key := range order {
		if counts[key] > bestCount {
			best, bestCount = key, counts[key]
		}
	}
	if best == "" {
		return "", errors.New(errors.ErrCodePocketNotDetected, "no binding pocket detected").WithDetail(f.receptor)
	}
	f.logger.Info("binding site selected", logging.String("residue", best),
		logging.Int("pockets", bestCount), logging.Int("scanned", len(files)))
	return best, nil
}

// pocketFiles lists the pocket atom files of dir sorted by pocket number.
func pocketFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodePocketNotDetected, "no binding pocket detected").WithDetail(dir).WithCause(err)
		}
		return nil, errors.Wrap(err, errors.ErrCodeStructureRead, "cannot list pocket directory").WithDetail(dir)
	}
	type pocket struct {
		n    int
		path string
	}
	var pockets []pocket
	for _, e := range entries {
		m := pocketFilePattern.FindStringSubmatch(e.Name())
		if m == nil || e.IsDir() {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		pockets = append(pockets, pocket{n: n, path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(pockets, func(i, j int) bool { return pockets[i].n < pockets[j].n })
	out := make([]string, len(pockets))
	for i, p := range pockets {
		out[i] = p.path
	}
	return out, nil
}

// PrepareReceptor produces the design unit to dock against. A receptor that
// is already a design unit is used as-is.
func (f *Fred) PrepareReceptor(ctx context.Context) (string, error) {
	if strings.HasSuffix(f.receptor, "oedu") {
		f.oeReceptor = f.receptor
		return f.oeReceptor, nil
	}
	start := time.Now()
	defer func() { f.deps.Metrics.RecordStage(EngineFred, "receptor", time.Since(start)) }()

	spruce := f.tool("spruce")
	if err := f.run(ctx, spruce, "-in", f.receptor); err != nil {
		if !errors.IsCode(err, errors.ErrCodeToolFailed) {
			return "", errors.Wrap(err, errors.CodeUnknown, "receptor preparation failed")
		}
		f.logger.Warn("spruce without site failed", logging.Err(err))
	}
	units, err := f.designUnits()
	if err != nil {
		return "", err
	}

	if len(units) == 0 {
		f.logger.Info("no design unit from ligand site, detecting pocket")
		site, err := f.FindPocket(ctx)
		if err != nil {
			return "", err
		}
		f.siteResidue = site
		if err := f.run(ctx, spruce, "-site_residue", site, "-in", f.receptor); err != nil {
			return "", errors.Wrap(err, errors.ErrCodeReceptorPrep, "receptor preparation failed")
		}
		if units, err = f.designUnits(); err != nil {
			return "", err
		}
		if len(units) == 0 {
			return "", errors.New(errors.ErrCodeReceptorPrep, "spruce produced no design unit").WithDetail(f.receptor)
		}
	}

	out := filepath.Join(f.runDir, f.label+".oedu")
	if err := f.run(ctx, f.tool("receptorindu"), "-in", units[0], "-out", out); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeReceptorPrep, "receptor preparation failed")
	}
	f.oeReceptor = out
	return out, nil
}

// designUnits lists the design units spruce wrote for the receptor.
func (f *Fred) designUnits() ([]string, error) {
	pattern := filepath.Join(f.runDir, strings.ToUpper(f.label)+"*.oedu")
	units, err := filepath.Glob(pattern)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeReceptorPrep, "bad design unit pattern").WithDetail(pattern)
	}
	return units, nil
}

// PrepareLigands generates conformers for the compound list. A list that is
// already a conformer database is used as-is.
func (f *Fred) PrepareLigands(ctx context.Context) (string, error) {
	if strings.HasSuffix(f.ligands, "oeb.gz") {
		f.oeLigands = f.ligands
		return f.oeLigands, nil
	}
	start := time.Now()
	defer func() { f.deps.Metrics.RecordStage(EngineFred, "ligands", time.Since(start)) }()

	out := filepath.Join(f.runDir, f.label+".oeb.gz")
	args := append([]string{"classic"}, f.mpiArgs()...)
	args = append(args, "-in", f.ligands, "-out", out, "-useGPU", "false")
	if err := f.run(ctx, f.tool("oeomega"), args...); err != nil {
		return "", errors.Wrap(err, errors.CodeUnknown, "conformer generation failed")
	}
	f.oeLigands = out
	return out, nil
}

// Dock docks the conformer database into the design unit.
func (f *Fred) Dock(ctx context.Context) (string, error) {
	if f.oeReceptor == "" || f.oeLigands == "" {
		return "", errors.New(errors.ErrCodeOptionsInvalid, "receptor and ligands must be prepared before docking")
	}
	start := time.Now()
	defer func() { f.deps.Metrics.RecordStage(EngineFred, "dock", time.Since(start)) }()

	out := filepath.Join(f.runDir, f.label+"_docked.oeb.gz")
	args := append(f.mpiArgs(),
		"-receptor", f.oeReceptor,
		"-dbase", f.oeLigands,
		"-docked_molecule_file", out,
		"-hitlist_size", strconv.Itoa(f.opts.HitlistSize))
	if err := f.run(ctx, f.tool("fred"), args...); err != nil {
		return "", errors.Wrap(err, errors.CodeUnknown, "docking failed")
	}
	f.docked = out
	return out, nil
}

// Report writes the PDF docking report.
func (f *Fred) Report(ctx context.Context) (string, error) {
	out := filepath.Join(f.runDir, f.label+".pdf")
	if err := f.run(ctx, f.tool("docking_report"),
		"-docked_poses", f.docked,
		"-receptor", f.oeReceptor,
		"-report_file", out); err != nil {
		return "", errors.Wrap(err, errors.CodeUnknown, "docking report failed")
	}
	return out, nil
}

// PrepareOutput converts the docked molecules to PDB, splits them into one
// file per molecule and merges each with the protein atoms of the receptor
// into <run>/<label>_<i>.pdb. Only PDB receptors are supported.
func (f *Fred) PrepareOutput(ctx context.Context) ([]string, error) {
	if !strings.HasSuffix(f.receptor, "pdb") {
		return nil, nil
	}
	start := time.Now()
	defer func() { f.deps.Metrics.RecordStage(EngineFred, "output", time.Since(start)) }()

	ligs := filepath.Join(f.runDir, f.label+"_ligs.pdb")
	if err := f.deps.Converter.Convert(ctx, f.docked, ligs); err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "cannot convert docked molecules")
	}
	pieces, err := structure.SplitModels(ligs)
	if err != nil {
		return nil, err
	}
	rec, err := structure.Load(f.receptor)
	if err != nil {
		return nil, err
	}
	protein := rec.SelectProtein()

	complexes := make([]string, 0, len(pieces))
	for i, piece := range pieces {
		lig, err := structure.Load(piece)
		if err != nil {
			return nil, err
		}
		out := filepath.Join(f.runDir, fmt.Sprintf("%s_%d.pdb", f.label, i))
		if err := structure.Merge(protein, lig).Write(out); err != nil {
			return nil, err
		}
		complexes = append(complexes, out)
	}
	f.logger.Info("complexes written", logging.Int("count", len(complexes)))
	return complexes, nil
}

// Run prepares receptor and ligands, docks, reports and writes the complexes.
// A failing report is logged and leaves FredSummary.Report empty.
func (f *Fred) Run(ctx context.Context) (*FredSummary, error) {
	defer f.Close()

	if _, err := f.PrepareReceptor(ctx); err != nil {
		return nil, err
	}
	if _, err := f.PrepareLigands(ctx); err != nil {
		return nil, err
	}
	if _, err := f.Dock(ctx); err != nil {
		return nil, err
	}
	summary := &FredSummary{
		Label:       f.label,
		RunDir:      f.runDir,
		Receptor:    f.oeReceptor,
		Ligands:     f.oeLigands,
		Docked:      f.docked,
		SiteResidue: f.siteResidue,
	}
	report, err := f.Report(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		f.logger.Warn("docking report failed", logging.Err(err))
	}
	summary.Report = report

	complexes, err := f.PrepareOutput(ctx)
	if err != nil {
		return nil, err
	}
	summary.Complexes = complexes
	return summary, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStructureRead, "cannot open receptor").WithDetail(src)
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStructureRead, "cannot stat receptor").WithDetail(src)
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStructureWrite, "cannot copy receptor").WithDetail(dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrap(err, errors.ErrCodeStructureWrite, "cannot copy receptor").WithDetail(dst)
	}
	if err := out.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeStructureWrite, "cannot copy receptor").WithDetail(dst)
	}
	return os.Chtimes(dst, time.Now(), info.ModTime())
}

//Personal.AI order the ending
