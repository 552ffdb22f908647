package errs

import (
	"errors"
	"strconv"
)

// Error codes for the sync engine's failure taxonomy.
const (
	CodeRateLimited     = 1001 // transient: HTTP history endpoint throttled the client
	CodeChannelNotReady = 1002 // transient: push channel not open yet
	CodeSendExhausted   = 1003 // terminal-reported: delivery retries used up
	CodeUploadFailed    = 1004 // terminal-local: attachment upload rejected
	CodeHistoryFailed   = 1005 // terminal-reported: history fetch gave up
)

var (
	ErrRateLimited     = NewCodeError(CodeRateLimited, "rate limit exceeded")
	ErrChannelNotReady = NewCodeError(CodeChannelNotReady, "push channel not ready")
	ErrSendExhausted   = NewCodeError(CodeSendExhausted, "send retries exhausted")
	ErrUploadFailed    = NewCodeError(CodeUploadFailed, "upload failed")
	ErrHistoryFailed   = NewCodeError(CodeHistoryFailed, "history fetch failed")
)

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{
		Code: code,
		Msg:  msg,
	}
}

type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func (e *CodeError) Error() string {
	s := strconv.Itoa(e.Code) + " " + e.Msg
	if e.Detail != "" {
		s += ": " + e.Detail
	}
	return s
}

// WithDetail returns a copy carrying extra context. The receiver is not
// mutated so the package-level sentinels stay clean.
func (e *CodeError) WithDetail(detail string) *CodeError {
	d := detail
	if e.Detail != "" {
		d = e.Detail + ", " + detail
	}
	return &CodeError{
		Code:   e.Code,
		Msg:    e.Msg,
		Detail: d,
	}
}

func (e *CodeError) Is(err error) bool {
	var ce *CodeError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == e.Code
}

// Code extracts the error code, or 0 when err carries none.
func Code(err error) int {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return 0
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code int) bool {
	return Code(err) == code
}
