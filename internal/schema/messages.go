package schema

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/totegamma/gamecatalog/internal/domain"
)

// ruleError turns the first validator failure into a readable message.
func ruleError(f Field, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.NewValidationError(fmt.Sprintf("%s is invalid", f.Name))
	}
	fe := verrs[0]

	subject := f.Name
	// dive failures are reported against an element, e.g. "[2]"
	if field := fe.Field(); strings.HasPrefix(field, "[") {
		subject += field
	}
	return domain.NewValidationError(subject + " " + describe(fe))
}

func describe(fe validator.FieldError) string {
	unit := ""
	switch fe.Kind() {
	case reflect.String:
		unit = " characters"
	case reflect.Slice:
		unit = " items"
	}

	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s%s", fe.Param(), unit)
	case "max", "lte":
		return fmt.Sprintf("must be at most %s%s", fe.Param(), unit)
	case "maxbytes":
		return fmt.Sprintf("must be at most %s bytes", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s%s", fe.Param(), unit)
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "unique":
		return "must not contain duplicates"
	default:
		return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
}
