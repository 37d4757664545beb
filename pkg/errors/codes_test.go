package errors

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode_String(t *testing.T) {
	assert.Equal(t, "TOOL_002", ErrCodeToolFailed.String())
}

func TestHTTPStatusForCode(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected int
	}{
		{ErrCodeInternal, 500},
		{ErrCodeBadRequest, 400},
		{ErrCodeNotFound, 404},
		{ErrCodeRunDirExists, 409},
		{ErrCodeCompoundParse, 422},
		{ErrCodeToolFailed, 502},
		{ErrCodeToolTimeout, 504},
		{ErrorCode("UNKNOWN"), 500},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, HTTPStatusForCode(tt.code), string(tt.code))
	}
}

func TestDefaultMessageForCode(t *testing.T) {
	assert.Equal(t, "external tool exited with an error", DefaultMessageForCode(ErrCodeToolFailed))
	assert.Equal(t, "unknown error", DefaultMessageForCode(ErrorCode("UNKNOWN")))
}

func TestIsClientServerError(t *testing.T) {
	assert.True(t, IsClientError(ErrCodeInvalidSMILES))
	assert.False(t, IsClientError(ErrCodeStructureWrite))
	assert.True(t, IsServerError(ErrCodeToolFailed))
	assert.False(t, IsServerError(ErrCodeJobNotFound))
}

func TestModuleForCode(t *testing.T) {
	assert.Equal(t, "COMMON", ModuleForCode(ErrCodeInternal))
	assert.Equal(t, "INPUT", ModuleForCode(ErrCodeInvalidSMILES))
	assert.Equal(t, "STRUCT", ModuleForCode(ErrCodeStructureParse))
	assert.Equal(t, "TOOL", ModuleForCode(ErrCodeToolFailed))
	assert.Equal(t, "DOCK", ModuleForCode(ErrCodeReceptorPrep))
	assert.Equal(t, "SCORE", ModuleForCode(ErrCodeNoScore))
	assert.Equal(t, "JOB", ModuleForCode(ErrCodeJobLocked))
	assert.Equal(t, "UNKNOWN", ModuleForCode(ErrorCode("")))
}

func TestErrorCodeMappings_Completeness(t *testing.T) {
	re := regexp.MustCompile(`^[A-Z]+_\d{3}$`)
	for code := range ErrorCodeHTTPStatus {
		assert.Regexp(t, re, string(code))
		_, hasMessage := ErrorCodeMessage[code]
		assert.True(t, hasMessage, "missing message for %s", code)
	}
	assert.Len(t, ErrorCodeMessage, len(ErrorCodeHTTPStatus))
}

//Personal.AI order the ending
