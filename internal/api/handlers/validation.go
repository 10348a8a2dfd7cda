package handlers

import (
	"sync"

	"recycle-pickup-api-server/internal/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidators adds the "material" and "timeslot" tags to gin's
// validator. Safe to call more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterValidation("material", func(fl validator.FieldLevel) bool {
			return models.MaterialType(fl.Field().String()).Valid()
		})
		v.RegisterValidation("timeslot", func(fl validator.FieldLevel) bool {
			return models.TimeSlot(fl.Field().String()).Valid()
		})
	})
}
