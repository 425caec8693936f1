package lifecycle

import "errors"

var (
	ErrDispatcherRequired  = errors.New("lifecycle dispatcher is required")
	ErrBoundaryRequired    = errors.New("lifecycle transaction boundary is required")
	ErrPersistFuncRequired = errors.New("lifecycle persist function is required")
	ErrSubjectRequired     = errors.New("lifecycle subject is required")
)
