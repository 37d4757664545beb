package job

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/turtacn/DockFlow/pkg/errors"
)

func validRequest() Request {
	return Request{Engine: EngineDiffDock, Receptor: "/data/1abc.pdb", CompoundList: "/data/ligs.txt", OutputDir: "/runs"}
}

func TestRequest_Validate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Request)
		ok     bool
	}{
		{"valid diffdock", func(*Request) {}, true},
		{"valid fred", func(r *Request) { r.Engine = EngineFred }, true},
		{"unknown engine", func(r *Request) { r.Engine = "vina" }, false},
		{"missing receptor", func(r *Request) { r.Receptor = " " }, false},
		{"missing compounds", func(r *Request) { r.CompoundList = "" }, false},
		{"zero top n", func(r *Request) { r.TopN = new(int) }, true},
		{"negative top n", func(r *Request) { n := -1; r.TopN = &n }, false},
		{"negative batch size", func(r *Request) { r.BatchSize = -2 }, false},
		{"diffdock without output", func(r *Request) { r.OutputDir = "" }, false},
		{"diffdock blank output", func(r *Request) { r.OutputDir = "  " }, false},
		{"fred without output", func(r *Request) { r.Engine, r.OutputDir = EngineFred, "" }, true},
		{"zero hitlist", func(r *Request) { r.HitlistSize = new(int) }, true},
		{"negative hitlist", func(r *Request) { n := -1; r.HitlistSize = &n }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := validRequest()
			tc.mutate(&r)
			err := r.Validate()
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeJobInvalid))
		})
	}
}

func TestNew(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	j, err := New(validRequest(), now)
	require.NoError(t, err)
	assert.Len(t, j.ID, 36)
	assert.Equal(t, StatusQueued, j.Status)
	assert.Equal(t, now, j.CreatedAt)

	_, err = New(Request{}, now)
	assert.Error(t, err)
}

func TestJob_Lifecycle(t *testing.T) {
	now := time.Now()
	j, err := New(validRequest(), now)
	require.NoError(t, err)

	assert.Error(t, j.Complete(now))
	require.NoError(t, j.Start(now))
	assert.Equal(t, StatusRunning, j.Status)
	require.NotNil(t, j.StartedAt)
	assert.Error(t, j.Start(now))

	require.NoError(t, j.Complete(now))
	assert.Equal(t, StatusCompleted, j.Status)
	require.NotNil(t, j.FinishedAt)
	assert.True(t, j.Status.IsTerminal())

	err = j.Fail(now, errors.New("late"))
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeJobInvalid))
}

func TestJob_Fail(t *testing.T) {
	j, err := New(validRequest(), time.Now())
	require.NoError(t, err)

	require.NoError(t, j.Fail(time.Now(), errors.New("no pocket")))
	assert.Equal(t, StatusFailed, j.Status)
	assert.Equal(t, "no pocket", j.Error)
}

//Personal.AI order the ending
