package validation

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/meagent/meagent_service/internal/api/handlers/common"
	"github.com/meagent/meagent_service/pkg/units"
)

// ErrValidation is wrapped by every error Validate returns
var ErrValidation = errors.New("validation failed")

// Validator wraps the validator library with custom validation rules
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	v := validator.New()

	v.RegisterValidation("evm_address", validateEVMAddress)
	v.RegisterValidation("amount", validateAmount)
	v.RegisterValidation("otp_code", validateOTPCode)

	return &Validator{validate: v}
}

// Validate validates a struct and returns error if validation fails
func (v *Validator) Validate(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, ", "))
		}
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

// ValidateJSON binds and validates the JSON request body. It writes the
// error response and returns false on failure.
func (v *Validator) ValidateJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			common.RespondPayloadTooLarge(c, tooLarge.Limit)
			return false
		}
		common.RespondBadRequest(c, "Invalid JSON format")
		return false
	}

	if err := v.Validate(obj); err != nil {
		common.RespondBadRequest(c, err.Error())
		return false
	}

	return true
}

// validateEVMAddress accepts 0x-prefixed 20 byte hex addresses
func validateEVMAddress(fl validator.FieldLevel) bool {
	return ethcommon.IsHexAddress(fl.Field().String()) && strings.HasPrefix(fl.Field().String(), "0x")
}

// validateAmount accepts finite positive decimals
func validateAmount(fl validator.FieldLevel) bool {
	d, err := units.ParseAmount(fl.Field().String())
	return err == nil && d.IsPositive()
}

func validateOTPCode(fl validator.FieldLevel) bool {
	code := fl.Field().String()
	if len(code) < 4 || len(code) > 10 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
