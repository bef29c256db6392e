package service

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	appErrors "github.com/noah-isme/hoken-api/pkg/errors"
)

// registerJSONTagNames makes validator report fields by their json tag so
// error details line up with the wire payload.
func registerJSONTagNames(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// fieldDetails converts validator failures into response details using the
// supplied per-field message translator.
func fieldDetails(errs validator.ValidationErrors, message func(validator.FieldError) string) []appErrors.FieldError {
	details := make([]appErrors.FieldError, 0, len(errs))
	for _, fe := range errs {
		details = append(details, appErrors.FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return details
}
