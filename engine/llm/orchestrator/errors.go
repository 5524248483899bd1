package orchestrator

// Generation error codes. Backend codes such as LLM_ERROR and TIMEOUT are
// passed through unchanged.
const (
	ErrCodeInvalidContext     = "INVALID_CONTEXT"
	ErrCodeOperationCancelled = "OPERATION_CANCELLED"
	ErrCodePromptBuild        = "PROMPT_BUILD_ERROR"
	ErrCodeHistory            = "HISTORY_ERROR"
	ErrCodeInvalidConfig      = "INVALID_CONFIGURATION"
)

const cancelledMessage = "Operation cancelled"
