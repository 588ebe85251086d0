package handler

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	deddomain "github.com/stockpool/backend/internal/domain/deduction"
)

// RegisterValidators installs custom binding validators on gin's
// validator engine. Call once during startup, before routes are served.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("platform", validPlatform)
}

func validPlatform(fl validator.FieldLevel) bool {
	return deddomain.Platform(fl.Field().String()).IsValid()
}
