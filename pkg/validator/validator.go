package validator

import (
	"fmt"
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var bloodTypeRe = regexp.MustCompile(`^(A|B|AB|O)[+-]$`)

// RegisterCustomRules installs domain validation rules on gin's binding
// engine. Call once at startup, before any request binds.
func RegisterCustomRules() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected binding validator engine %T", binding.Validator.Engine())
	}

	return v.RegisterValidation("bloodtype", func(fl validator.FieldLevel) bool {
		return bloodTypeRe.MatchString(fl.Field().String())
	})
}

// IsBloodType reports whether s is a well-formed ABO/Rh blood type.
func IsBloodType(s string) bool {
	return bloodTypeRe.MatchString(s)
}
