package process

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/DockFlow/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DockFlow/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/DockFlow/pkg/errors"
)

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func newTestRunner(t *testing.T) (*ExecRunner, prometheus.MetricsCollector) {
	t.Helper()
	c, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "test", Subsystem: "proc"}, logging.NewNopLogger())
	require.NoError(t, err)
	return NewRunner(logging.NewNopLogger(), prometheus.NewDockingMetrics(c), WithWaitDelay(500*time.Millisecond)), c
}

func scrape(t *testing.T, c prometheus.MetricsCollector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestRun_Success(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "tool", `echo "out line"; echo "err line" 1>&2`)
	r, c := newTestRunner(t)

	var log bytes.Buffer
	res, err := r.Run(context.Background(), Command{Name: script, Args: []string{"-in", "a b.pdb"}, Log: &log})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, script+" -in 'a b.pdb'", res.Command)

	lines := strings.Split(strings.TrimSpace(log.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, res.Command, lines[0], "command line is echoed first")
	assert.Contains(t, log.String(), "out line")
	assert.Contains(t, log.String(), "err line")
	assert.Contains(t, res.LogExcerpt, "err line")

	assert.Contains(t, scrape(t, c), `test_proc_tool_invocations_total{status="success",tool="tool"} 1`)
}

func TestRun_WorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	work := filepath.Join(dir, "work")
	require.NoError(t, os.Mkdir(work, 0o755))
	script := writeScript(t, dir, "where", `pwd`)
	r, _ := newTestRunner(t)

	var out bytes.Buffer
	_, err := r.Run(context.Background(), Command{Name: script, Dir: work, Stdout: &out})
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(work)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRun_EnvIsChildOnly(t *testing.T) {
	const key = "DOCKFLOW_TEST_LICENSE"
	_, present := os.LookupEnv(key)
	require.False(t, present)

	dir := t.TempDir()
	script := writeScript(t, dir, "env", `echo "$`+key+`"`)
	r, _ := newTestRunner(t)

	var out bytes.Buffer
	_, err := r.Run(context.Background(), Command{
		Name:   script,
		Env:    map[string]string{key: "/opt/oe_license.txt"},
		Stdout: &out,
	})
	require.NoError(t, err)
	assert.Equal(t, "/opt/oe_license.txt", strings.TrimSpace(out.String()))

	_, present = os.LookupEnv(key)
	assert.False(t, present, "parent environment must not change")
}

func TestRun_StdoutRedirectKeepsStderrInLog(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "obabel", `echo "ATOM"; echo "1 molecule converted" 1>&2`)
	r, _ := newTestRunner(t)

	var out, log bytes.Buffer
	_, err := r.Run(context.Background(), Command{Name: script, Stdout: &out, Log: &log})
	require.NoError(t, err)
	assert.Equal(t, "ATOM\n", out.String())
	assert.Contains(t, log.String(), "1 molecule converted")
	assert.NotContains(t, log.String(), "ATOM\n")
}

func TestRun_NonZeroExit(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "inference", `echo "CUDA out of memory" 1>&2; exit 3`)
	r, c := newTestRunner(t)

	res, err := r.Run(context.Background(), Command{Name: script})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeToolFailed))
	assert.Contains(t, err.Error(), "status 3")
	assert.Contains(t, err.Error(), "CUDA out of memory")
	require.NotNil(t, res)
	assert.Equal(t, 3, res.ExitCode)
	assert.Contains(t, scrape(t, c), `test_proc_tool_invocations_total{status="failure",tool="inference"} 1`)
}

func TestRun_NotFound(t *testing.T) {
	r, _ := newTestRunner(t)

	_, err := r.Run(context.Background(), Command{Name: "dockflow-no-such-tool"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeToolNotFound))

	_, err = r.Run(context.Background(), Command{Name: filepath.Join(t.TempDir(), "absent")})
	assert.True(t, errors.IsCode(err, errors.ErrCodeToolNotFound))

	_, err = r.Run(context.Background(), Command{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeToolNotFound))
}

func TestRun_NotExecutable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gnina")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o644))
	r, c := newTestRunner(t)

	_, err := r.Run(context.Background(), Command{Name: path})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeToolFailed))
	assert.False(t, errors.IsCode(err, errors.ErrCodeToolNotFound))
	assert.Contains(t, err.Error(), "not executable")
	assert.Contains(t, scrape(t, c), `test_proc_tool_invocations_total{status="failure",tool="gnina"} 1`)
}

func TestRun_Timeout(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "slow", `exec sleep 10`)
	r, c := newTestRunner(t)

	start := time.Now()
	res, err := r.Run(context.Background(), Command{Name: script, Timeout: 100 * time.Millisecond})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeToolTimeout))
	assert.NotNil(t, res)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Contains(t, scrape(t, c), `test_proc_tool_invocations_total{status="timeout",tool="slow"} 1`)
}

func TestRun_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "slow", `exec sleep 10`)
	r, _ := newTestRunner(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	_, err := r.Run(ctx, Command{Name: script})
	assert.True(t, errors.IsCode(err, errors.ErrCodeToolTimeout))
}

func TestRun_ToolLabelOverride(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "python", `exit 0`)
	r, c := newTestRunner(t)

	_, err := r.Run(context.Background(), Command{Name: script, Tool: "diffdock"})
	require.NoError(t, err)
	assert.Contains(t, scrape(t, c), `tool="diffdock"`)
}

func TestTailBuffer(t *testing.T) {
	tb := newTailBuffer(8)
	_, _ = tb.Write([]byte("abc"))
	_, _ = tb.Write([]byte("defgh"))
	assert.Equal(t, "abcdefgh", tb.String())
	_, _ = tb.Write([]byte("ij"))
	assert.Equal(t, "cdefghij", tb.String())
	_, _ = tb.Write([]byte("0123456789"))
	assert.Equal(t, "23456789", tb.String())
}

func TestCommand_String(t *testing.T) {
	c := Command{Name: "spruce", Args: []string{"-site_residue", "HIS:41: :A", "-in", "rec.pdb", ""}}
	assert.Equal(t, "spruce -site_residue 'HIS:41: :A' -in rec.pdb ''", c.String())
}

//Personal.AI order the ending
