// internal/service/validation.go
package service

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"mandir-fund/internal/domain"
	"mandir-fund/internal/metrics"
	"mandir-fund/internal/util"
)

var (
	phonePattern = regexp.MustCompile(`^[0-9]{10}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// donorForm carries the validation rules for DonorDetails. Tags are kept off the
// domain type so storage and wire formats stay free of form concerns.
type donorForm struct {
	Name    string `json:"name" validate:"required,max=120"`
	Phone   string `json:"phone" validate:"omitempty,phone10"`
	Email   string `json:"email" validate:"omitempty,max=254,donoremail"`
	Message string `json:"message" validate:"max=500"`
	Amount  int64  `json:"amount" validate:"gt=0"`
}

// fieldMessages maps "field.tag" to the message shown next to the form field.
var fieldMessages = map[string]string{
	"name.required":    "Please enter your name",
	"name.max":         "Name must be at most 120 characters",
	"phone.phone10":    "Please enter a valid 10-digit phone number",
	"email.donoremail": "Please enter a valid email address",
	"email.max":        "Please enter a valid email address",
	"message.max":      "Message must be at most 500 characters",
	"amount.gt":        "Please enter a valid amount",
}

// DetailsValidator checks donor details before anything is persisted.
type DetailsValidator struct {
	validate *validator.Validate
}

// NewDetailsValidator builds a validator with the donor-form rules registered.
func NewDetailsValidator() *DetailsValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("phone10", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("donoremail", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	return &DetailsValidator{validate: v}
}

// Validate normalizes details in place and checks them together with amount.
// It returns a *util.ValidationError listing every failing field, or nil.
func (dv *DetailsValidator) Validate(details *domain.DonorDetails, amount int64) error {
	details.Normalize()
	form := donorForm{
		Name:    details.Name,
		Phone:   details.Phone,
		Email:   details.Email,
		Message: details.Message,
		Amount:  amount,
	}

	err := dv.validate.Struct(form)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	ve := util.NewValidationError()
	for _, fe := range fieldErrs {
		msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = "Invalid value"
		}
		ve.Add(fe.Field(), msg)
		metrics.IntakeValidationFailures.WithLabelValues(fe.Field()).Inc()
	}
	return ve
}
