package docking

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/DockFlow/internal/domain/compound"
	"github.com/turtacn/DockFlow/internal/domain/pose"
	"github.com/turtacn/DockFlow/internal/domain/structure"
	"github.com/turtacn/DockFlow/pkg/errors"
)

const compoundList = `lig1 CCO
c1ccccc1 lig2
bad_1 ???
`

// fakeInference mimics the inference module: every manifest row except
// lig_bad gets three poses, lig_bad is listed as a bad ligand.
const fakeInference = `csv=$5; out=$7; bad=$9
pwd -P > "$out/cwd"
echo "inference on $csv"
tail -n +2 "$csv" | while IFS=, read -r prot smiles id seq; do
  if [ "$id" = "lig_bad" ]; then echo "$id" >> "$bad"; continue; fi
  mkdir -p "$out/$id"
  echo pose > "$out/$id/rank1_confidence-0.12.sdf"
  echo pose > "$out/$id/rank2_confidence0.50.sdf"
  echo pose > "$out/$id/rank3_confidence-1.30.sdf"
  echo pose > "$out/$id/rank4_confidence101.00.sdf"
done`

type diffdockFixture struct {
	dir       string
	receptor  string
	list      string
	toolDir   string
	out       string
	converter *fakeConverter
	scorer    *fakeScorer
}

func newDiffDockFixture(t *testing.T, list string) *diffdockFixture {
	t.Helper()
	dir := t.TempDir()
	fx := &diffdockFixture{
		dir:       dir,
		receptor:  writeFile(t, dir, "rec.clean.pdb", receptorPDB),
		list:      writeFile(t, dir, "compounds.txt", list),
		toolDir:   filepath.Join(dir, "diffdock"),
		out:       filepath.Join(dir, "out"),
		converter: &fakeConverter{},
		scorer:    &fakeScorer{},
	}
	require.NoError(t, os.Mkdir(fx.toolDir, 0o755))
	return fx
}

func (fx *diffdockFixture) options() DiffDockOptions {
	opts := DefaultDiffDockOptions()
	opts.Receptor = fx.receptor
	opts.CompoundList = fx.list
	opts.DiffDockDir = fx.toolDir
	opts.OutputDir = fx.out
	return opts
}

func (fx *diffdockFixture) deps() Deps {
	return Deps{Runner: testRunner(), Converter: fx.converter, Scorer: fx.scorer}
}

func TestDefaultDiffDockOptions(t *testing.T) {
	opts := DefaultDiffDockOptions()
	assert.Equal(t, 1, opts.TopN)
	assert.Equal(t, -1, opts.BatchSize)
	assert.Equal(t, 5, opts.ScoreWorkers)
	assert.Equal(t, "python", opts.Python)
	assert.False(t, opts.ContinueRun)
	assert.False(t, opts.SkipInvalid)
	assert.Zero(t, opts.DockTimeout)
}

func TestDiffDockOptions_Validate(t *testing.T) {
	valid := DefaultDiffDockOptions()
	valid.Receptor, valid.CompoundList, valid.DiffDockDir, valid.OutputDir = "r.pdb", "l.txt", "dd", "out"
	require.NoError(t, valid.Validate())

	cases := map[string]func(o *DiffDockOptions){
		"no receptor":    func(o *DiffDockOptions) { o.Receptor = "" },
		"no list":        func(o *DiffDockOptions) { o.CompoundList = "" },
		"no tool dir":    func(o *DiffDockOptions) { o.DiffDockDir = "" },
		"no output":      func(o *DiffDockOptions) { o.OutputDir = "" },
		"negative top":   func(o *DiffDockOptions) { o.TopN = -1 },
		"zero batch":     func(o *DiffDockOptions) { o.BatchSize = 0 },
		"negative batch": func(o *DiffDockOptions) { o.BatchSize = -2 },
		"no workers":     func(o *DiffDockOptions) { o.ScoreWorkers = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			o := valid
			mutate(&o)
			err := o.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeOptionsInvalid))
		})
	}
}

func TestRunLabel(t *testing.T) {
	assert.Equal(t, "1abc", RunLabel("/data/1abc.clean.pdb"))
	assert.Equal(t, "rec", RunLabel("rec.pdb"))
	assert.Equal(t, "rec", RunLabel("rec"))
	assert.Equal(t, ".hidden", RunLabel(".hidden"))
}

func TestNewDiffDock_ExistingOutputDir(t *testing.T) {
	fx := newDiffDockFixture(t, compoundList)
	require.NoError(t, os.Mkdir(fx.out, 0o755))

	_, err := NewDiffDock(fx.options(), fx.deps())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRunDirExists))

	opts := fx.options()
	opts.ContinueRun = true
	d, err := NewDiffDock(opts, fx.deps())
	require.NoError(t, err)
	assert.Equal(t, "rec", d.Label())
	assert.Equal(t, fx.out, d.RunDir())
	assert.Equal(t, filepath.Join(fx.out, "rec.pdb"), d.Receptor())
}

func TestPrepareInputs_TwoValidOneInvalid(t *testing.T) {
	fx := newDiffDockFixture(t, compoundList)
	d, err := NewDiffDock(fx.options(), fx.deps())
	require.NoError(t, err)

	res, err := d.PrepareInputs(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Compounds, 2)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Swapped)
	assert.Equal(t, []string{"lig1", "lig2"}, res.IDs())

	rec, err := structure.Load(d.Receptor())
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Len(), "water is removed from the receptor")

	f, err := os.Open(d.Manifest())
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, ManifestHeader, records[0])
	assert.Equal(t, []string{d.Receptor(), "CCO", "lig1", ""}, records[1])
	assert.Equal(t, []string{d.Receptor(), "c1ccccc1", "lig2", ""}, records[2])
}

func TestPrepareInputs_IncludeSequence(t *testing.T) {
	fx := newDiffDockFixture(t, "lig1 CCO\n")
	opts := fx.options()
	opts.IncludeSequence = true
	d, err := NewDiffDock(opts, fx.deps())
	require.NoError(t, err)

	_, err = d.PrepareInputs(context.Background())
	require.NoError(t, err)
	data, err := os.ReadFile(d.Manifest())
	require.NoError(t, err)
	assert.Contains(t, string(data), ",lig1,MG\n")
}

func TestInferenceCommand(t *testing.T) {
	fx := newDiffDockFixture(t, compoundList)
	opts := fx.options()
	d, err := NewDiffDock(opts, fx.deps())
	require.NoError(t, err)

	cmd := d.InferenceCommand()
	assert.Equal(t, "python", cmd.Name)
	assert.Equal(t, fx.toolDir, cmd.Dir)
	assert.Equal(t, []string{
		"-u", "-m", "inference",
		"--protein_ligand_csv", filepath.Join(fx.out, "all.csv"),
		"--out_dir", fx.out,
		"--bad_ligands", filepath.Join(fx.out, "bad-ligands.txt"),
	}, cmd.Args)

	opts.BatchSize = 8
	opts.ContinueRun = true
	d, err = NewDiffDock(opts, fx.deps())
	require.NoError(t, err)
	args := d.InferenceCommand().Args
	assert.Equal(t, []string{"--batch_size", "8"}, args[len(args)-2:])
}

func TestRun_AbortsOnParseFailure(t *testing.T) {
	fx := newDiffDockFixture(t, compoundList)
	opts := fx.options()
	opts.Python = writeScript(t, fx.dir, "python", `touch "$7/ran"`)
	d, err := NewDiffDock(opts, fx.deps())
	require.NoError(t, err)

	_, err = d.Run(context.Background())
	require.Error(t, err)
	var perr *compound.ParseFailureError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 1, perr.Failed)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCompoundParse))
	assert.NoFileExists(t, filepath.Join(fx.out, "ran"), "docking must not start")
}

func TestRun_NoValidCompounds(t *testing.T) {
	fx := newDiffDockFixture(t, "# nothing\n")
	d, err := NewDiffDock(fx.options(), fx.deps())
	require.NoError(t, err)

	_, err = d.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCompoundParse))
}

func TestRunDocking_NonZeroExit(t *testing.T) {
	fx := newDiffDockFixture(t, compoundList)
	opts := fx.options()
	opts.Python = writeScript(t, fx.dir, "python", `echo "CUDA out of memory" 1>&2; exit 3`)
	d, err := NewDiffDock(opts, fx.deps())
	require.NoError(t, err)
	_, err = d.PrepareInputs(context.Background())
	require.NoError(t, err)

	err = d.RunDocking(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeToolFailed))
	assert.Equal(t, errors.ErrCodeToolFailed, errors.GetCode(err))

	log, rerr := os.ReadFile(filepath.Join(fx.out, DiffDockLog))
	require.NoError(t, rerr)
	assert.Contains(t, string(log), "CUDA out of memory")
}

func TestRun_EndToEnd(t *testing.T) {
	fx := newDiffDockFixture(t, compoundList+"CCN lig_bad\n")
	opts := fx.options()
	opts.Python = writeScript(t, fx.dir, "python", fakeInference)
	opts.SkipInvalid = true
	opts.TopN = 2
	opts.ScoreWorkers = 2
	d, err := NewDiffDock(opts, fx.deps())
	require.NoError(t, err)

	// Only lig2 loses its first rank to the scorer.
	fx.scorer.failFor = func(poseFile string) bool {
		return filepath.Base(filepath.Dir(poseFile)) == "lig2" && filepath.Base(poseFile) == "rank1_confidence-0.12.sdf"
	}

	summary, err := d.Run(context.Background())
	require.NoError(t, err)

	cwd, err := os.ReadFile(filepath.Join(fx.out, "cwd"))
	require.NoError(t, err)
	assert.Equal(t, fx.toolDir+"\n", string(cwd))
	log, err := os.ReadFile(filepath.Join(fx.out, DiffDockLog))
	require.NoError(t, err)
	assert.Contains(t, string(log), "inference on")

	assert.Equal(t, "rec", summary.Label)
	assert.Equal(t, 3, summary.Compounds)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 4, summary.Poses, "two ranks kept for lig1 and lig2")
	assert.Equal(t, 4, summary.Filtered, "rank 3 and the out-of-range confidence")
	assert.Equal(t, 3, summary.Scored)
	assert.Equal(t, 1, summary.Dropped)
	assert.Equal(t, []string{"lig_bad"}, summary.Missing)
	require.Len(t, summary.Results, 3)
	assert.Equal(t, CompoundMissing, summary.Results[2].Status)

	bad, err := d.BadLigands()
	require.NoError(t, err)
	assert.Equal(t, []string{"lig_bad"}, bad)

	for _, s := range fx.scorer.receptors {
		assert.Equal(t, d.Receptor(), s)
	}

	rows, err := pose.ReadReport(filepath.Join(fx.out, "lig1", ResultFile))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, 2, rows[1].Rank)
	assert.Equal(t, "-0.12", rows[0].Score)
	assert.Equal(t, "rank1_confidence-0.12.sdf", rows[0].LigandFile)
	assert.Equal(t, "rec_rank1_confidence-0.12.pdb", rows[0].ComplexFile)

	merged, err := structure.Load(filepath.Join(fx.out, "lig1", "rec_rank1_confidence-0.12.pdb"))
	require.NoError(t, err)
	assert.Equal(t, 5, merged.Len(), "receptor and ligand atoms are merged")

	rows, err = pose.ReadReport(filepath.Join(fx.out, "lig2", ResultFile))
	require.NoError(t, err)
	require.Len(t, rows, 1, "the unscored candidate is absent")
	assert.Equal(t, 2, rows[0].Rank)

	all, err := pose.ReadReport(summary.ReportPath)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, filepath.Join(fx.out, AggregateFile), summary.ReportPath)
	assert.Len(t, summary.Reports, 2)
}

func TestPostProcess_DropsFailedConversions(t *testing.T) {
	fx := newDiffDockFixture(t, "lig1 CCO\n")
	fx.converter.fail = map[string]bool{"rank1_confidence-0.12.sdf": true}
	opts := fx.options()
	opts.TopN = 0
	d, err := NewDiffDock(opts, fx.deps())
	require.NoError(t, err)
	res, err := d.PrepareInputs(context.Background())
	require.NoError(t, err)

	writeFile(t, fx.out, "lig1/rank1_confidence-0.12.sdf", "pose\n")
	writeFile(t, fx.out, "lig1/rank2_confidence0.50.sdf", "pose\n")
	writeFile(t, fx.out, "lig1/notes.txt", "ignored\n")

	summary, err := d.PostProcess(context.Background(), res.Compounds)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Poses)
	assert.Equal(t, 1, summary.Dropped)
	assert.Equal(t, 1, summary.Scored)
	require.Len(t, summary.Rows, 1)
	assert.Equal(t, 2, summary.Rows[0].Rank)
}

func TestPostProcess_UnscoredCompoundStillReported(t *testing.T) {
	fx := newDiffDockFixture(t, "lig1 CCO\n")
	fx.scorer.failFor = func(string) bool { return true }
	d, err := NewDiffDock(fx.options(), fx.deps())
	require.NoError(t, err)
	res, err := d.PrepareInputs(context.Background())
	require.NoError(t, err)
	writeFile(t, fx.out, "lig1/rank1_confidence-0.12.sdf", "pose\n")

	summary, err := d.PostProcess(context.Background(), res.Compounds)
	require.NoError(t, err)
	assert.Equal(t, CompoundUnscored, summary.Results[0].Status)
	rows, err := pose.ReadReport(summary.Results[0].Report)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestPostProcess_BoundedScoringPool(t *testing.T) {
	fx := newDiffDockFixture(t, "lig1 CCO\n")
	fx.scorer.delay = 50 * time.Millisecond
	opts := fx.options()
	opts.TopN = 0
	opts.ScoreWorkers = 2
	d, err := NewDiffDock(opts, fx.deps())
	require.NoError(t, err)
	res, err := d.PrepareInputs(context.Background())
	require.NoError(t, err)
	for _, name := range []string{
		"rank1_confidence-0.10.sdf", "rank2_confidence-0.20.sdf", "rank3_confidence-0.30.sdf",
		"rank4_confidence-0.40.sdf", "rank5_confidence-0.50.sdf", "rank6_confidence-0.60.sdf",
	} {
		writeFile(t, fx.out, filepath.Join("lig1", name), "pose\n")
	}

	summary, err := d.PostProcess(context.Background(), res.Compounds)
	require.NoError(t, err)
	assert.Equal(t, 6, summary.Scored)
	assert.LessOrEqual(t, fx.scorer.maxActive.Load(), int32(2))
	for i, row := range summary.Rows {
		assert.Equal(t, i+1, row.Rank, "rows are joined by index and stay in rank order")
	}
}

func TestPostProcess_Cancelled(t *testing.T) {
	fx := newDiffDockFixture(t, "lig1 CCO\n")
	fx.scorer.delay = 5 * time.Second
	d, err := NewDiffDock(fx.options(), fx.deps())
	require.NoError(t, err)
	res, err := d.PrepareInputs(context.Background())
	require.NoError(t, err)
	writeFile(t, fx.out, "lig1/rank1_confidence-0.12.sdf", "pose\n")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = d.PostProcess(ctx, res.Compounds)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

//Personal.AI order the ending
