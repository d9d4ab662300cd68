package address

import (
	"reflect"
	"regexp"
	"sort"
	"strings"

	pkgerrors "github.com/angelmondragon/gheehive-storefront/pkg/errors"
	"github.com/angelmondragon/gheehive-storefront/pkg/types"
	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"
)

const (
	TagMobile  = "in_mobile"
	TagPincode = "pincode"
)

var (
	mobilePattern  = regexp.MustCompile(`^[6-9]\d{9}$`)
	pincodePattern = regexp.MustCompile(`^\d{6}$`)
)

var rules = mustNewValidator()

func mustNewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	if err := RegisterValidations(v); err != nil {
		panic(err)
	}
	return v
}

// RegisterValidations installs the phone and pincode tags on v.
func RegisterValidations(v *validator.Validate) error {
	return multierr.Combine(
		v.RegisterValidation(TagMobile, func(fl validator.FieldLevel) bool {
			return ValidPhone(fl.Field().String())
		}),
		v.RegisterValidation(TagPincode, func(fl validator.FieldLevel) bool {
			return ValidPincode(fl.Field().String())
		}),
	)
}

// ValidPhone reports whether s is a 10-digit Indian mobile number.
func ValidPhone(s string) bool {
	return mobilePattern.MatchString(s)
}

// ValidPincode reports whether s is a 6-digit postal code.
func ValidPincode(s string) bool {
	return pincodePattern.MatchString(s)
}

// Message returns the user-facing text for a failed rule.
func Message(tag string) string {
	switch tag {
	case "required":
		return "is required"
	case TagMobile:
		return "must be a 10-digit mobile number starting with 6-9"
	case TagPincode:
		return "must be a 6-digit pincode"
	}
	return "is invalid"
}

type scopedErrors struct {
	scope string
	errs  validator.ValidationErrors
}

func (s scopedErrors) Error() string {
	return s.scope + ": " + s.errs.Error()
}

func check(scope string, a types.Address) error {
	err := rules.Struct(a.Normalize())
	if err == nil {
		return nil
	}
	if errs, ok := err.(validator.ValidationErrors); ok {
		return scopedErrors{scope: scope, errs: errs}
	}
	return err
}

// Validate checks a single address and reports every violated rule.
func Validate(a types.Address) error {
	return toValidationError(check("", a))
}

// ValidatePair checks shipping and, unless it aliases shipping, billing.
// Violations from both addresses are reported together.
func ValidatePair(shipping types.Address, billing *types.Address, sameAsShipping bool) error {
	err := check("shipping", shipping)
	if !sameAsShipping {
		if billing == nil {
			err = multierr.Append(err, pkgerrors.New(pkgerrors.CodeValidation, "billing address is required").
				WithDetails(map[string]string{"billing": "is required"}))
		} else {
			err = multierr.Append(err, check("billing", *billing))
		}
	}
	return toValidationError(err)
}

func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	details := map[string]string{}
	for _, e := range multierr.Errors(err) {
		switch typed := e.(type) {
		case scopedErrors:
			for _, fe := range typed.errs {
				key := fe.Field()
				if typed.scope != "" {
					key = typed.scope + "." + key
				}
				details[key] = Message(fe.Tag())
			}
		case *pkgerrors.Error:
			if m, ok := typed.Details().(map[string]string); ok {
				for k, v := range m {
					details[k] = v
				}
			}
		default:
			return pkgerrors.Wrap(pkgerrors.CodeValidation, e, "validation failed")
		}
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "address validation failed").WithDetails(details)
}

// Fields lists the offending field keys of a validation error in sorted order.
func Fields(err error) []string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return nil
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(details))
	for k := range details {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
