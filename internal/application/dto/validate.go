package dto

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

var validate = validator.New()

// Validate aplica las etiquetas `validate` y traduce las fallas a un domain.ValidationError
// con el formato campo=regla.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return domain.NewValidationError("%s", err.Error())
	}
	return domain.NewValidationError("campos inválidos: %s", strings.Join(fieldErrors(ves), ", "))
}

func fieldErrors(ves validator.ValidationErrors) []string {
	out := make([]string, 0, len(ves))
	for _, ve := range ves {
		out = append(out, fmt.Sprintf("%s=%s", ve.Field(), ve.Tag()))
	}
	sort.Strings(out)
	return out
}
