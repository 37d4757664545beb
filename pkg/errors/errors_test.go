package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/DockFlow/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// New / Wrap
// ─────────────────────────────────────────────────────────────────────────────

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"internal", errors.CodeInternal, "unexpected failure"},
		{"smiles", errors.ErrCodeInvalidSMILES, "unbalanced parentheses"},
		{"tool", errors.ErrCodeToolFailed, "gnina exited 1"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ae := errors.New(tc.code, tc.message)
			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail)
			assert.Nil(t, ae.Cause)
		})
	}
}

func TestError_Format(t *testing.T) {
	ae := errors.New(errors.ErrCodeRunDirExists, "run directory already exists")
	assert.Equal(t, "[DOCK_001] run directory already exists", ae.Error())

	ae = ae.WithDetail("/tmp/run")
	assert.Equal(t, "[DOCK_001] run directory already exists: /tmp/run", ae.Error())

	wrapped := errors.Wrap(stderrors.New("exit status 2"), errors.ErrCodeToolFailed, "fred failed")
	assert.Equal(t, "[TOOL_002] fred failed: exit status 2", wrapped.Error())
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, errors.Wrap(nil, errors.CodeInternal, "ignored"))
	assert.Nil(t, errors.Wrapf(nil, errors.CodeInternal, "ignored %d", 1))
}

func TestWrap_PreservesInnerCodeWithUnknown(t *testing.T) {
	inner := errors.New(errors.ErrCodeStructureParse, "bad x column")
	outer := errors.Wrap(inner, errors.CodeUnknown, "loading receptor")
	assert.Equal(t, errors.ErrCodeStructureParse, outer.Code)
	assert.True(t, stderrors.Is(outer, inner))
}

func TestWithDetail_DoesNotMutateReceiver(t *testing.T) {
	base := errors.New(errors.ErrCodeToolNotFound, "not found")
	withDetail := base.WithDetailf("tool=%s", "obabel")
	assert.Empty(t, base.Detail)
	assert.Equal(t, "tool=obabel", withDetail.Detail)

	var nilErr *errors.AppError
	assert.Nil(t, nilErr.WithDetail("x"))
	assert.Nil(t, nilErr.WithCause(stderrors.New("x")))
}

// ─────────────────────────────────────────────────────────────────────────────
// Chain inspection
// ─────────────────────────────────────────────────────────────────────────────

func TestIsCode_TraversesChain(t *testing.T) {
	inner := errors.New(errors.ErrCodeNoScore, "no molecule")
	mid := errors.Wrap(inner, errors.ErrCodePostProcess, "rescoring")
	outer := fmt.Errorf("compound c1: %w", mid)

	assert.True(t, errors.IsCode(outer, errors.ErrCodePostProcess))
	assert.True(t, errors.IsCode(outer, errors.ErrCodeNoScore))
	assert.False(t, errors.IsCode(outer, errors.ErrCodeToolTimeout))
	assert.False(t, errors.IsCode(nil, errors.ErrCodeNoScore))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("plain")))
	assert.Equal(t, errors.ErrCodeJobLocked, errors.GetCode(errors.New(errors.ErrCodeJobLocked, "locked")))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, errors.IsNotFound(errors.NotFound("run")))
	assert.True(t, errors.IsNotFound(errors.New(errors.ErrCodeJobNotFound, "job")))
	assert.False(t, errors.IsNotFound(errors.Internal("boom")))
}

func TestConvenienceFactories(t *testing.T) {
	assert.Equal(t, errors.CodeInvalidParam, errors.InvalidParam("x").Code)
	assert.Equal(t, errors.CodeConflict, errors.Conflict("x").Code)
	assert.Equal(t, errors.CodeInternal, errors.Internal("x").Code)
	assert.Equal(t, "a=1", errors.Newf(errors.CodeInternal, "a=%d", 1).Message)
}

//Personal.AI order the ending
