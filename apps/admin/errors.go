package main

import (
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

func validationErrors(err error) (validator.ValidationErrors, bool) {
	vErrs, ok := errors.Cause(err).(validator.ValidationErrors)
	return vErrs, ok
}
