package errcode

// Error code convention:
// - 0: no error
// - 4xxx: recoverable / local errors (field validation, rejected input, recovered conflicts)
// - 5xxx: system errors (retryable transport failures, unknown failures)
const (
	OK                = 0
	FieldValidation   = 4001
	DuplicateInput    = 4002
	ResourceMissing   = 4004
	ConflictRecovered = 4009
	SystemError       = 5000
	Retryable         = 5003
)
