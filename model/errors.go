package model

import (
	"github.com/pkg/errors"
)

var (
	ValidationError   = errors.New("validation failed")
	IsValidationError = isErrorFunc(ValidationError)
	maskAny           = errors.WithStack
)

func isErrorFunc(typeOfError error) func(err error) bool {
	return func(err error) bool {
		return err == typeOfError || errors.Cause(err) == typeOfError
	}
}
