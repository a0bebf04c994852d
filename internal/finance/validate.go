package finance

import (
	"errors"
	"reflect"
	"strings"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/toko-finance/internal/common"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(shippingOrder, Settings{})
	return v
}

// shippingOrder runs apart from the field tags so that an out-of-range
// maximum still reports the ordering conflict.
func shippingOrder(sl validator.StructLevel) {
	s := sl.Current().Interface().(Settings)
	if s.ShippingMaxSellerPercentage >= s.ShippingSellerPercentage {
		sl.ReportError(s.ShippingMaxSellerPercentage, "shipping_max_seller_percentage", "ShippingMaxSellerPercentage", "ltfield", "shipping_seller_percentage")
	}
}

// Validate checks every field range and the ordering between the two
// shipping percentages. It returns all violations and never panics; callers
// decide whether to reject a save.
func Validate(s Settings) common.ValidationErrors {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return common.ValidationErrors{{Field: "settings", Code: common.CodeInvalid, Message: err.Error()}}
	}
	out := make(common.ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, translate(fe))
	}
	return out
}

func translate(fe validator.FieldError) common.ValidationError {
	field := fe.Field()
	switch fe.Tag() {
	case "gte":
		return common.ValidationError{Field: field, Code: common.CodeOutOfRange, Message: "must be at least " + fe.Param()}
	case "lte":
		return common.ValidationError{Field: field, Code: common.CodeOutOfRange, Message: "must be at most " + fe.Param()}
	case "ltfield":
		return common.ValidationError{Field: field, Code: common.CodeConflict, Message: "must be lower than shipping_seller_percentage"}
	default:
		return common.ValidationError{Field: field, Code: common.CodeInvalid, Message: "failed " + fe.Tag() + " check"}
	}
}
