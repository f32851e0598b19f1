package utils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct validates a request payload against its validate tags and
// returns a single caller-friendly message.
func ValidateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var msgs []string
	for _, fieldErr := range err.(validator.ValidationErrors) {
		msgs = append(msgs, fmt.Sprintf("%s failed on %q", fieldErr.Field(), fieldErr.Tag()))
	}
	return fmt.Errorf("validation failed: %s", strings.Join(msgs, ", "))
}
