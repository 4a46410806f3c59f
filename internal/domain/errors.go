package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain layer.
var (
	ErrNotFound     = fmt.Errorf("not found")
	ErrDuplicate    = fmt.Errorf("duplicate")
	ErrTimeout      = fmt.Errorf("operation timed out")
	ErrInvalidInput = fmt.Errorf("invalid input")
	ErrConfigLoad   = fmt.Errorf("failed to load configuration")

	// Catalog errors. Catalog problems are fatal configuration errors: the
	// router never retries them itself, the caller must surface them.
	ErrCatalogLoad        = fmt.Errorf("failed to load agent catalog")
	ErrCatalogUnavailable = fmt.Errorf("agent catalog unavailable")
	ErrAgentNotFound      = fmt.Errorf("agent not found in catalog")
	ErrNoAgentsInCategory = fmt.Errorf("no agents match required category")

	// Degradable collaborator errors. These never fail a routing request;
	// the engine defaults the signal and sets the degraded flag.
	ErrEmbeddingFailed      = fmt.Errorf("embedding generation failed")
	ErrEmbeddingBreakerOpen = fmt.Errorf("embedding circuit open")
	ErrWorkloadUnavailable  = fmt.Errorf("workload snapshot unavailable")
	ErrHistoryUnavailable   = fmt.Errorf("outcome history unavailable")

	// Task service errors.
	ErrTaskNotFound  = fmt.Errorf("task: %w", ErrNotFound)
	ErrTaskCompleted = fmt.Errorf("task already completed")
	ErrTaskStore     = fmt.Errorf("task store operation failed")
	ErrOutcomeStore  = fmt.Errorf("outcome store operation failed")

	// Gateway errors.
	ErrGatewayAuthFailed = fmt.Errorf("gateway authentication failed")
	ErrRPCMethodNotFound = fmt.Errorf("rpc method not found")
	ErrRPCInvalidPayload = fmt.Errorf("rpc payload invalid")
)

// DomainError wraps a sentinel error with operation context.
type DomainError struct {
	Op     string // operation name (e.g., "Engine.Suggest")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsDegradable reports whether err comes from an optional signal source and
// routing should proceed with defaults instead of failing the request.
func IsDegradable(err error) bool {
	return errors.Is(err, ErrEmbeddingFailed) ||
		errors.Is(err, ErrEmbeddingBreakerOpen) ||
		errors.Is(err, ErrWorkloadUnavailable) ||
		errors.Is(err, ErrHistoryUnavailable) ||
		errors.Is(err, ErrTimeout)
}

// ErrorCode is a machine-parseable error category for monitoring and alerting.
type ErrorCode string

const (
	CodeUnknown            ErrorCode = "UNKNOWN"
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeDuplicate          ErrorCode = "DUPLICATE"
	CodeTimeout            ErrorCode = "TIMEOUT"
	CodeInvalidInput       ErrorCode = "INVALID_INPUT"
	CodeConfigLoad         ErrorCode = "CONFIG_LOAD"
	CodeCatalogLoad        ErrorCode = "CATALOG_LOAD"
	CodeCatalogUnavailable ErrorCode = "CATALOG_UNAVAILABLE"
	CodeAgentNotFound      ErrorCode = "AGENT_NOT_FOUND"
	CodeNoAgentsInCategory ErrorCode = "NO_AGENTS_IN_CATEGORY"
	CodeEmbeddingFailed    ErrorCode = "EMBEDDING_FAILED"
	CodeEmbeddingBreaker   ErrorCode = "EMBEDDING_CIRCUIT_OPEN"
	CodeWorkloadUnavail    ErrorCode = "WORKLOAD_UNAVAILABLE"
	CodeHistoryUnavail     ErrorCode = "HISTORY_UNAVAILABLE"
	CodeTaskNotFound       ErrorCode = "TASK_NOT_FOUND"
	CodeTaskCompleted      ErrorCode = "TASK_COMPLETED"
	CodeTaskStore          ErrorCode = "TASK_STORE"
	CodeOutcomeStore       ErrorCode = "OUTCOME_STORE"
	CodeGatewayAuth        ErrorCode = "GATEWAY_AUTH"
	CodeRPCMethodNotFound  ErrorCode = "RPC_METHOD_NOT_FOUND"
	CodeRPCInvalidPayload  ErrorCode = "RPC_INVALID_PAYLOAD"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrNotFound:             CodeNotFound,
	ErrDuplicate:            CodeDuplicate,
	ErrTimeout:              CodeTimeout,
	ErrInvalidInput:         CodeInvalidInput,
	ErrConfigLoad:           CodeConfigLoad,
	ErrCatalogLoad:          CodeCatalogLoad,
	ErrCatalogUnavailable:   CodeCatalogUnavailable,
	ErrAgentNotFound:        CodeAgentNotFound,
	ErrNoAgentsInCategory:   CodeNoAgentsInCategory,
	ErrEmbeddingFailed:      CodeEmbeddingFailed,
	ErrEmbeddingBreakerOpen: CodeEmbeddingBreaker,
	ErrWorkloadUnavailable:  CodeWorkloadUnavail,
	ErrHistoryUnavailable:   CodeHistoryUnavail,
	ErrTaskNotFound:         CodeTaskNotFound,
	ErrTaskCompleted:        CodeTaskCompleted,
	ErrTaskStore:            CodeTaskStore,
	ErrOutcomeStore:         CodeOutcomeStore,
	ErrGatewayAuthFailed:    CodeGatewayAuth,
	ErrRPCMethodNotFound:    CodeRPCMethodNotFound,
	ErrRPCInvalidPayload:    CodeRPCInvalidPayload,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It unwraps DomainError and uses errors.Is to match sentinel errors.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	// Fast path: direct sentinel lookup.
	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code, ok := errorCodeMap[de.Err]; ok {
			return code
		}
	}

	// Walk the error chain with errors.Is. ErrTaskNotFound wraps ErrNotFound,
	// so check specific sentinels before category ones.
	for _, sentinel := range []error{
		ErrCatalogLoad, ErrCatalogUnavailable, ErrAgentNotFound,
		ErrNoAgentsInCategory, ErrEmbeddingBreakerOpen, ErrEmbeddingFailed,
		ErrWorkloadUnavailable, ErrHistoryUnavailable, ErrTaskNotFound,
		ErrTaskCompleted, ErrTaskStore, ErrOutcomeStore, ErrGatewayAuthFailed,
		ErrRPCMethodNotFound, ErrRPCInvalidPayload, ErrConfigLoad,
		ErrInvalidInput, ErrTimeout, ErrDuplicate, ErrNotFound,
	} {
		if errors.Is(err, sentinel) {
			return errorCodeMap[sentinel]
		}
	}

	return CodeUnknown
}
