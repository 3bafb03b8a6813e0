package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidPeriod        ErrorCode = 102
	ErrCodeMissingParameter     ErrorCode = 103
	ErrCodeInvalidVersion       ErrorCode = 104

	// Input malformation errors (200-299)
	ErrCodeMalformedInput    ErrorCode = 200
	ErrCodeUnparseableTime   ErrorCode = 201
	ErrCodeNonMonotonicTime  ErrorCode = 202
	ErrCodeInvertedBar       ErrorCode = 203
	ErrCodeColumnLength      ErrorCode = 204
	ErrCodeDataNotFound      ErrorCode = 205
	ErrCodeQueryFailed       ErrorCode = 206
	ErrCodeDataSourceFailure ErrorCode = 207

	// Pipeline errors (300-399)
	ErrCodeIndicatorNotFound      ErrorCode = 300
	ErrCodeIndicatorAlreadyExists ErrorCode = 301
	ErrCodeIndicatorCalculation   ErrorCode = 302
	ErrCodeConverterFailed        ErrorCode = 303
	ErrCodeCacheMiss              ErrorCode = 304

	// Condition and position machine errors (400-499)
	ErrCodeConditionMaterialise ErrorCode = 400
	ErrCodeColumnCount          ErrorCode = 401
	ErrCodeInvalidTsig          ErrorCode = 402
	ErrCodeUnsupportedPtm       ErrorCode = 403

	// Backtest errors (600-699)
	ErrCodeBacktestFailed      ErrorCode = 600
	ErrCodeBacktestConfigError ErrorCode = 601
	ErrCodeResultWriteFailed   ErrorCode = 602

	// Live bridge errors (700-799)
	ErrCodeOrderRejected      ErrorCode = 700
	ErrCodeUnexpectedStatus   ErrorCode = 701
	ErrCodeInstrumentNotFound ErrorCode = 702
	ErrCodeQueueClosed        ErrorCode = 703
	ErrCodeBrokerFailure      ErrorCode = 704

	// Persistence errors (800-899)
	ErrCodePersistFailed   ErrorCode = 800
	ErrCodeVersionMismatch ErrorCode = 801
)
