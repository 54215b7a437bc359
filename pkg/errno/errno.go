package errno

import "errors"

// Errno defines the error code logic
type Errno struct {
	Code    int
	Message string
}

func (e Errno) Error() string {
	return e.Message
}

// WithMessage keeps the code but replaces the message, e.g. for validation details.
func (e Errno) WithMessage(msg string) Errno {
	return Errno{Code: e.Code, Message: msg}
}

// Decode tries to convert an error to Errno
func Decode(err error) (int, string) {
	if err == nil {
		return OK.Code, OK.Message
	}

	var typed Errno
	if errors.As(err, &typed) {
		return typed.Code, typed.Message
	}
	var ptr *Errno
	if errors.As(err, &ptr) {
		return ptr.Code, ptr.Message
	}
	return InternalServerError.Code, err.Error()
}

// Common Errors
var (
	OK                  = Errno{Code: 0, Message: "Success"}
	InternalServerError = Errno{Code: 10001, Message: "Internal server error"}
	ErrBind             = Errno{Code: 10002, Message: "Error occurred while binding the request body to the struct"}
	ErrDatabase         = Errno{Code: 10004, Message: "Database error"}
	ErrQueue            = Errno{Code: 10005, Message: "Task queue error"}
)

// Business Errors (20000+)
var (
	ErrMemberNotFound     = Errno{Code: 20101, Message: "Member not found"}
	ErrAddressNotFound    = Errno{Code: 20201, Message: "Deposit address not found"}
	ErrDepositDisabled    = Errno{Code: 20202, Message: "deposit_disabled"}
	ErrWalletNotFound     = Errno{Code: 20203, Message: "wallet_not_found"}
	ErrGenerationFailed   = Errno{Code: 20204, Message: "generation_failed"}
	ErrCurrencyNotFound   = Errno{Code: 20301, Message: "Currency not found"}
	ErrBlockchainNotFound = Errno{Code: 20302, Message: "Blockchain not found"}
)
