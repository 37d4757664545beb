package errors

import (
	"net/http"
	"strings"
)

// ErrorCode identifies a failure category as "<MODULE>_<nnn>".
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeMessageQueueError  ErrorCode = "COMMON_014"
	ErrCodeStorageError       ErrorCode = "COMMON_015"
	ErrCodeConfigInvalid      ErrorCode = "COMMON_016"
)

// Short aliases used across layers.
const (
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
)

// Compound input Error Codes
const (
	ErrCodeInvalidSMILES     ErrorCode = "INPUT_001"
	ErrCodeCompoundParse     ErrorCode = "INPUT_002"
	ErrCodeCompoundLine      ErrorCode = "INPUT_003"
	ErrCodeDuplicateCompound ErrorCode = "INPUT_004"
	ErrCodeInputUnreadable   ErrorCode = "INPUT_005"
)

// Structure I/O Error Codes
const (
	ErrCodeStructureRead  ErrorCode = "STRUCT_001"
	ErrCodeStructureParse ErrorCode = "STRUCT_002"
	ErrCodeStructureEmpty ErrorCode = "STRUCT_003"
	ErrCodeStructureWrite ErrorCode = "STRUCT_004"
)

// External tool Error Codes
const (
	ErrCodeToolNotFound      ErrorCode = "TOOL_001"
	ErrCodeToolFailed        ErrorCode = "TOOL_002"
	ErrCodeToolTimeout       ErrorCode = "TOOL_003"
	ErrCodeToolOutputMissing ErrorCode = "TOOL_004"
)

// Docking pipeline Error Codes
const (
	ErrCodeRunDirExists      ErrorCode = "DOCK_001"
	ErrCodeManifestWrite     ErrorCode = "DOCK_002"
	ErrCodeReceptorPrep      ErrorCode = "DOCK_003"
	ErrCodePostProcess       ErrorCode = "DOCK_004"
	ErrCodeOptionsInvalid    ErrorCode = "DOCK_005"
	ErrCodePocketNotDetected ErrorCode = "DOCK_006"
)

// Rescoring Error Codes
const (
	ErrCodeNoScore    ErrorCode = "SCORE_001"
	ErrCodeScoreParse ErrorCode = "SCORE_002"
)

// Job Error Codes
const (
	ErrCodeJobNotFound ErrorCode = "JOB_001"
	ErrCodeJobLocked   ErrorCode = "JOB_002"
	ErrCodeJobInvalid  ErrorCode = "JOB_003"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeMessageQueueError:  http.StatusServiceUnavailable,
	ErrCodeStorageError:       http.StatusInternalServerError,
	ErrCodeConfigInvalid:      http.StatusInternalServerError,

	ErrCodeInvalidSMILES:     http.StatusBadRequest,
	ErrCodeCompoundParse:     http.StatusUnprocessableEntity,
	ErrCodeCompoundLine:      http.StatusBadRequest,
	ErrCodeDuplicateCompound: http.StatusBadRequest,
	ErrCodeInputUnreadable:   http.StatusBadRequest,

	ErrCodeStructureRead:  http.StatusBadRequest,
	ErrCodeStructureParse: http.StatusUnprocessableEntity,
	ErrCodeStructureEmpty: http.StatusUnprocessableEntity,
	ErrCodeStructureWrite: http.StatusInternalServerError,

	ErrCodeToolNotFound:      http.StatusServiceUnavailable,
	ErrCodeToolFailed:        http.StatusBadGateway,
	ErrCodeToolTimeout:       http.StatusGatewayTimeout,
	ErrCodeToolOutputMissing: http.StatusBadGateway,

	ErrCodeRunDirExists:      http.StatusConflict,
	ErrCodeManifestWrite:     http.StatusInternalServerError,
	ErrCodeReceptorPrep:      http.StatusUnprocessableEntity,
	ErrCodePostProcess:       http.StatusInternalServerError,
	ErrCodeOptionsInvalid:    http.StatusBadRequest,
	ErrCodePocketNotDetected: http.StatusUnprocessableEntity,

	ErrCodeNoScore:    http.StatusUnprocessableEntity,
	ErrCodeScoreParse: http.StatusBadGateway,

	ErrCodeJobNotFound: http.StatusNotFound,
	ErrCodeJobLocked:   http.StatusConflict,
	ErrCodeJobInvalid:  http.StatusBadRequest,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeMessageQueueError:  "message queue error",
	ErrCodeStorageError:       "object storage error",
	ErrCodeConfigInvalid:      "invalid configuration",

	ErrCodeInvalidSMILES:     "invalid SMILES string",
	ErrCodeCompoundParse:     "compound list contains invalid entries",
	ErrCodeCompoundLine:      "malformed compound line",
	ErrCodeDuplicateCompound: "duplicate compound identifier",
	ErrCodeInputUnreadable:   "compound list cannot be read",

	ErrCodeStructureRead:  "structure file cannot be read",
	ErrCodeStructureParse: "malformed structure record",
	ErrCodeStructureEmpty: "structure contains no atoms",
	ErrCodeStructureWrite: "structure file cannot be written",

	ErrCodeToolNotFound:      "external tool not found",
	ErrCodeToolFailed:        "external tool exited with an error",
	ErrCodeToolTimeout:       "external tool timed out",
	ErrCodeToolOutputMissing: "external tool produced no output",

	ErrCodeRunDirExists:      "run directory already exists",
	ErrCodeManifestWrite:     "run manifest cannot be written",
	ErrCodeReceptorPrep:      "receptor preparation failed",
	ErrCodePostProcess:       "post-processing failed",
	ErrCodeOptionsInvalid:    "invalid docking options",
	ErrCodePocketNotDetected: "no binding pocket detected",

	ErrCodeNoScore:    "rescoring produced no result",
	ErrCodeScoreParse: "rescoring output is malformed",

	ErrCodeJobNotFound: "docking job not found",
	ErrCodeJobLocked:   "docking run is locked by another job",
	ErrCodeJobInvalid:  "invalid docking job request",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	prefix, _, _ := strings.Cut(string(code), "_")
	if prefix == "" {
		return "UNKNOWN"
	}
	return prefix
}

//Personal.AI order the ending
