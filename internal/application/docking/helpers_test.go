package docking

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/turtacn/DockFlow/internal/domain/pose"
	"github.com/turtacn/DockFlow/internal/infrastructure/chemtools"
	"github.com/turtacn/DockFlow/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DockFlow/internal/infrastructure/process"
	"github.com/turtacn/DockFlow/pkg/errors"
)

const receptorPDB = `HEADER    TEST RECEPTOR
ATOM      1  N   MET A   1      11.104   6.134  -6.504  1.00  0.00           N
ATOM      2  CA  MET A   1      11.639   6.071  -5.147  1.00  0.00           C
ATOM      3  CA  GLY A   2      12.101   7.256  -3.997  1.00  0.00           C
HETATM    4  O   HOH A 101       1.000   2.000   3.000  1.00  0.00           O
END
`

const posePDB = `COMPND    lig
HETATM    1  C1  UNL     1       0.000   0.000   0.000  1.00  0.00           C
HETATM    2  O1  UNL     1       1.200   0.000   0.000  1.00  0.00           O
END
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func testRunner() process.Runner {
	return process.NewRunner(logging.NewNopLogger(), nil, process.WithWaitDelay(500*time.Millisecond))
}

// fakeConverter writes a two-atom ligand for every pose and copies a fixture
// for generic conversions.
type fakeConverter struct {
	fail    map[string]bool
	generic string
	calls   atomic.Int32
}

func (f *fakeConverter) SDFToPDB(_ context.Context, sdf string) (string, error) {
	f.calls.Add(1)
	if f.fail[filepath.Base(sdf)] {
		return "", errors.New(errors.ErrCodeToolFailed, "obabel exited with status 1")
	}
	pdb := chemtools.PDBPath(sdf)
	if err := os.WriteFile(pdb, []byte(posePDB), 0o644); err != nil {
		return "", err
	}
	return pdb, nil
}

func (f *fakeConverter) Convert(_ context.Context, _, out string) error {
	return os.WriteFile(out, []byte(f.generic), 0o644)
}

// fakeScorer scores every pose failFor does not reject and tracks the highest number
// of concurrent calls.
type fakeScorer struct {
	failFor func(poseFile string) bool
	delay   time.Duration

	mu        sync.Mutex
	receptors []string
	active    atomic.Int32
	maxActive atomic.Int32
}

func (s *fakeScorer) Score(ctx context.Context, receptor, poseFile string) (*pose.Score, error) {
	n := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		m := s.maxActive.Load()
		if n <= m || s.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	s.mu.Lock()
	s.receptors = append(s.receptors, receptor)
	s.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.failFor != nil && s.failFor(poseFile) {
		return nil, chemtools.ErrNoScore
	}
	return &pose.Score{CNNScore: "0.9", CNNAffinity: "6.1", MinimizedAffinity: "-7.2"}, nil
}

//Personal.AI order the ending
