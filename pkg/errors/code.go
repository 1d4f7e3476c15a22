package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: Roster errors
// 12000-12999: Problem metadata errors
// 13000-13999: Crawl & daily record errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	TooManyRequests     ErrorCode = 10006
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008

	// Database errors (10100-10199)
	DatabaseError       ErrorCode = 10100
	RecordNotFound      ErrorCode = 10101
	RecordAlreadyExists ErrorCode = 10102

	// Cache errors (10200-10299)
	CacheError ErrorCode = 10200
	LockFailed ErrorCode = 10203

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	InvalidFormat      ErrorCode = 10301
	InvalidValue       ErrorCode = 10302
	RequiredFieldEmpty ErrorCode = 10303

	// ========== Roster Errors (11000-11999) ==========

	RosterUserNotFound ErrorCode = 11000
	RosterEmpty        ErrorCode = 11001

	// ========== Problem Metadata Errors (12000-12999) ==========

	ProblemNotFound   ErrorCode = 12000
	ProblemMetaFailed ErrorCode = 12001

	// ========== Crawl & Daily Record Errors (13000-13999) ==========

	// Crawl run (13000-13099)
	CrawlRunFailed       ErrorCode = 13000
	CrawlInProgress      ErrorCode = 13001
	CrawlHistoryNotFound ErrorCode = 13002
	SourceFetchFailed    ErrorCode = 13003
	TimestampParseFailed ErrorCode = 13004

	// Daily records (13100-13199)
	DailyRecordExists       ErrorCode = 13100
	DailyRecordCreateFailed ErrorCode = 13101
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	TooManyRequests:     "Too many requests, please try again later",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	DatabaseError:       "Database operation failed",
	RecordNotFound:      "Record not found in database",
	RecordAlreadyExists: "Record already exists",

	CacheError: "Cache operation failed",
	LockFailed: "Failed to acquire lock",

	ValidationFailed:   "Validation failed",
	InvalidFormat:      "Invalid format",
	InvalidValue:       "Invalid value",
	RequiredFieldEmpty: "Required field is empty",

	RosterUserNotFound: "User is not on the roster",
	RosterEmpty:        "Roster is empty",

	ProblemNotFound:   "Problem not found",
	ProblemMetaFailed: "Failed to fetch problem metadata",

	CrawlRunFailed:       "Crawl run failed",
	CrawlInProgress:      "A crawl run is already in progress",
	CrawlHistoryNotFound: "No successful crawl run yet",
	SourceFetchFailed:    "Failed to fetch submissions",
	TimestampParseFailed: "Failed to parse submission timestamp",

	DailyRecordExists:       "A record already exists for this user and date",
	DailyRecordCreateFailed: "Failed to create daily record",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == NotFound, c == RecordNotFound, c == RosterUserNotFound,
		c == ProblemNotFound, c == CrawlHistoryNotFound:
		return 404
	case c == RecordAlreadyExists, c == DailyRecordExists, c == CrawlInProgress:
		return 409
	case c == TooManyRequests:
		return 429
	case c == ServiceUnavailable:
		return 503
	case c == Timeout:
		return 504
	case c >= 10300 && c < 10400: // Validation errors
		return 400
	case c == InvalidParams:
		return 400
	default:
		return 500
	}
}
