package dto

import (
	"regexp"
	"strings"

	"card-vault/internal/core/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	safeIDRe     = regexp.MustCompile(`^[a-zA-Z0-9_\-\.]+$`)
	cardNumberRe = regexp.MustCompile(`^[0-9]{13,19}$`)
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("safe_id", validateSafeID)
		_ = v.RegisterValidation("card_number", validateCardNumber)
		_ = v.RegisterValidation("card_expiry", validateCardExpiry)
	}
}

// validateSafeID allows alphanumeric, underscore, dash, and dot.
func validateSafeID(fl validator.FieldLevel) bool {
	return safeIDRe.MatchString(fl.Field().String())
}

// validateCardNumber accepts 13 to 19 digits and checks the Luhn digit.
func validateCardNumber(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if !cardNumberRe.MatchString(s) {
		return false
	}
	return luhnValid(s)
}

// validateCardExpiry accepts MM/YY with a real month.
func validateCardExpiry(fl validator.FieldLevel) bool {
	_, err := domain.ParseCardExpiry(fl.Field().String())
	return err == nil
}

func luhnValid(s string) bool {
	sum := 0
	double := false
	for i := len(s) - 1; i >= 0; i-- {
		d := int(s[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// SanitizeSignUp trims surrounding whitespace from credential fields before
// they reach the service layer.
func SanitizeSignUp(req *SignUpRequest) {
	req.Username = strings.TrimSpace(req.Username)
}

// SanitizeLogin trims surrounding whitespace from the username.
func SanitizeLogin(req *LoginRequest) {
	req.Username = strings.TrimSpace(req.Username)
}
