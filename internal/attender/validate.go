package attender

import (
	"fmt"

	"github.com/gatherly/gatherly-api/internal/apperr"
	"github.com/gatherly/gatherly-api/internal/model"
	"github.com/gatherly/gatherly-api/internal/validation"
)

// Validate checks a single attender and returns an *apperr.ValidationError
// naming every violating field.
func Validate(a *model.Attender) error {
	var ve apperr.ValidationError
	validation.Collect(&ve, "", a)
	return ve.OrNil()
}

// ValidateBatch validates all attenders and reports violations from every row,
// with field names prefixed by the row index.
func ValidateBatch(as []model.Attender) error {
	var ve apperr.ValidationError
	for i := range as {
		validation.Collect(&ve, fmt.Sprintf("[%d].", i), &as[i])
	}
	return ve.OrNil()
}
