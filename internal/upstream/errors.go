package upstream

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	// KindTransient covers network failures, 5xx responses and exhausted
	// retries. The stage fails but may succeed next cycle.
	KindTransient ErrorKind = iota
	// KindPermanent covers 4xx responses other than 429, the request shape
	// itself is wrong.
	KindPermanent
	// KindRateLimited means the hourly quota is exhausted and the client is
	// parked until the upstream's reset time.
	KindRateLimited
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindRateLimited:
		return "rate_limited"
	}
	return "unknown"
}

type Error struct {
	Kind   ErrorKind
	Status int
	Url    string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream %s (status %d, %s): %s", e.Kind, e.Status, e.Url, e.Err)
	}
	return fmt.Sprintf("upstream %s (status %d, %s)", e.Kind, e.Status, e.Url)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func kindOf(err error) (ErrorKind, bool) {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Kind, true
	}
	return 0, false
}

func IsTransient(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindTransient
}

func IsPermanent(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindPermanent
}

func IsRateLimited(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindRateLimited
}
