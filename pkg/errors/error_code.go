package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidOrderRequest  ErrorCode = 102
	ErrCodeInvalidGranularity   ErrorCode = 103
	ErrCodeMissingParameter     ErrorCode = 104

	// Data/Resource errors (200-299)
	ErrCodeContractUnavailable ErrorCode = 200
	ErrCodeBalanceUnavailable  ErrorCode = 201
	ErrCodeOrderNotFound       ErrorCode = 202
	ErrCodePositionNotFound    ErrorCode = 203

	// Market data errors (300-399)
	ErrCodeFeedClosed       ErrorCode = 300
	ErrCodeEmptyBucket      ErrorCode = 301
	ErrCodeStateUnavailable ErrorCode = 302

	// Risk errors (400-499)
	ErrCodeRiskRejected ErrorCode = 400

	// Trading errors (500-599)
	ErrCodeOrderFailed          ErrorCode = 500
	ErrCodeUnsupportedOrderKind ErrorCode = 501
	ErrCodeExchangeUnavailable  ErrorCode = 502
	ErrCodeDispatcherStopped    ErrorCode = 503

	// Pipeline errors (600-699)
	ErrCodePipelineInitFailed ErrorCode = 600
	ErrCodeShutdownTimeout    ErrorCode = 601
)
