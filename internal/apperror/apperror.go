// Package apperror implements the error taxonomy every long-running
// component in this service converts its failures into before logging or
// changing state: every worker, driver, watchdog and picker goroutine
// catches at its top frame and never lets a raw error cross a goroutine
// boundary uncaught.
package apperror

import (
	"errors"
	"fmt"
)

// Category groups codes by the subsystem that raises them.
type Category string

const (
	CategoryCore        Category = "core"
	CategoryTask        Category = "task"
	CategoryComputation Category = "computation"
	CategoryService     Category = "service"
	CategoryStock       Category = "stock"
)

// Code identifies a specific failure within its Category.
type Code string

const (
	// Core
	CodeIO          Code = "io"
	CodeJSONParse   Code = "json_parse"
	CodeNumberParse Code = "number_parse"
	CodeInvalidInput Code = "invalid_input"
	CodeInternal    Code = "internal"

	// Task
	CodeTaskNotFound          Code = "task_not_found"
	CodeTaskInvalidID         Code = "task_invalid_id"
	CodeTaskDuplicate         Code = "task_duplicate"
	CodeTaskInvalidState      Code = "task_invalid_state"
	CodeTaskIllegalTransition Code = "task_illegal_transition"
	CodeTaskMissingClientInfo Code = "task_missing_client_info"
	CodeTaskWorkerTerminated  Code = "task_worker_terminated"
	CodeTaskWorkerSync        Code = "task_worker_sync"
	CodeTaskWorkerError       Code = "task_worker_error"
	CodeTaskMaterialMismatch  Code = "task_material_mismatch"
	CodeTaskLock              Code = "task_lock"

	// Computation
	CodeOptimizationFailed Code = "optimization_failed"
	CodeSolutionCompute    Code = "solution_compute"
	CodeSolutionCompare    Code = "solution_compare"
	CodeNodeCopy           Code = "node_copy"
	CodeCandidateSearch    Code = "candidate_search"

	// Service
	CodeServiceTaskAlreadyExists    Code = "service_task_already_exists"
	CodeServiceClientAlreadyHasTask Code = "service_client_already_has_task"
	CodeServiceInvalidClient        Code = "service_invalid_client"
	CodeServiceShuttingDown         Code = "service_shutting_down"
	CodeServiceMaxTasksReached      Code = "service_max_tasks_reached"
	CodeServiceNotInitialized       Code = "service_not_initialized"
	CodeServiceLockFailed           Code = "service_lock_failed"
	CodeServiceResourceUnavailable  Code = "service_resource_unavailable"
	CodeServicePermissionDenied     Code = "service_permission_denied"
	CodeServicePoolError            Code = "service_pool_error"
	CodeServiceInit                 Code = "service_init"
	CodeServiceValidation           Code = "service_validation"
	CodeServiceLock                 Code = "service_lock"

	// Stock
	CodeStockNoStockTiles             Code = "stock_no_stock_tiles"
	CodeStockNoTilesToFit             Code = "stock_no_tiles_to_fit"
	CodeStockComputationLimitExceeded Code = "stock_computation_limit_exceeded"
	CodeStockPickerNotInitialized     Code = "stock_picker_not_initialized"
	CodeStockGenerationInterrupted    Code = "stock_generation_interrupted"
	CodeStockNoMoreSolutions          Code = "stock_no_more_solutions"
	CodeStockPickerThread             Code = "stock_picker_thread"
)

var retryableCodes = map[Code]bool{
	CodeIO:                         true,
	CodeTaskWorkerTerminated:       true, // task-timeout class
	CodeTaskWorkerError:            true, // worker-execution class
	CodeTaskWorkerSync:             true,
	CodeServiceResourceUnavailable: true,
	CodeServiceLockFailed:          true,
	CodeServiceMaxTasksReached:     true,
	CodeStockGenerationInterrupted: true,
	CodeStockPickerThread:          true,
}

var clientErrorCodes = map[Code]bool{
	CodeInvalidInput:          true,
	CodeTaskNotFound:          true,
	CodeTaskDuplicate:         true,
	CodeTaskInvalidState:      true,
	CodeServiceValidation:     true,
	CodeServiceInvalidClient:  true,
}

// Error is the typed error every component in this service returns or logs.
type Error struct {
	Category Category
	Code     Code
	Message  string
	Cause    error
}

func New(cat Category, code Code, message string) *Error {
	return &Error{Category: cat, Code: code, Message: message}
}

func Wrap(cat Category, code Code, message string, cause error) *Error {
	return &Error{Category: cat, Code: code, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s/%s: %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s/%s: %s", e.Category, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// IsRetryable reports whether the failure is worth retrying, per §7.
func (e *Error) IsRetryable() bool { return retryableCodes[e.Code] }

// IsClientError reports whether the failure originates from bad input
// rather than from the service itself, per §7.
func (e *Error) IsClientError() bool { return clientErrorCodes[e.Code] }

// As extracts an *Error from err, if any is present in its chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
