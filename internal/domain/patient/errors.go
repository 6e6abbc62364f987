package patient

import "errors"

var (
	ErrValidation = errors.New("patient: validation failed")
	ErrNotFound   = errors.New("patient: not found")
)
