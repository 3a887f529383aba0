package services

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	usernamePattern   = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
	personNamePattern = regexp.MustCompile(`^[\p{L} ]+$`)
	phonePattern      = regexp.MustCompile(`^\+?1?\d{9,15}$`)
)

const passwordSpecials = `!@#$%^&*(),.?":{}|<>`

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		mustRegister(v, "username", func(fl validator.FieldLevel) bool {
			return usernamePattern.MatchString(fl.Field().String())
		})
		mustRegister(v, "personname", func(fl validator.FieldLevel) bool {
			name := fl.Field().String()
			n := len([]rune(strings.TrimSpace(name)))
			return n >= 2 && len([]rune(name)) <= 50 && personNamePattern.MatchString(name)
		})
		mustRegister(v, "phone", func(fl validator.FieldLevel) bool {
			return phonePattern.MatchString(fl.Field().String())
		})
		mustRegister(v, "strongpassword", func(fl validator.FieldLevel) bool {
			return passwordProblem(fl.Field().String()) == ""
		})
		mustRegister(v, "notfuture", func(fl validator.FieldLevel) bool {
			d, err := time.Parse(dateLayout, fl.Field().String())
			if err != nil {
				return false
			}
			return !d.After(time.Now().UTC())
		})
		validate = v
	})
	return validate
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

const dateLayout = "2006-01-02"

// passwordProblem returns a description of what the password lacks, or "".
func passwordProblem(password string) string {
	if len(password) < 8 {
		return "must be at least 8 characters"
	}
	if len(password) > 72 {
		return "must be at most 72 bytes"
	}
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	switch {
	case !upper:
		return "must contain an uppercase letter"
	case !lower:
		return "must contain a lowercase letter"
	case !digit:
		return "must contain a digit"
	case !special:
		return "must contain a special character"
	}
	return ""
}

// validateStruct runs the struct tags of s and converts failures into a
// ValidationError.
func validateStruct(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate input: %w", err)
	}

	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fieldPath(fe),
			Message: describe(fe),
		})
	}
	return out
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		if fe.Kind() == reflect.Slice {
			return "must have at most " + fe.Param() + " items"
		}
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "username":
		return "may only contain letters, digits, underscore, dot and hyphen"
	case "personname":
		return "must be 2-50 letters and spaces"
	case "phone":
		return "must be a valid phone number"
	case "strongpassword":
		if str, ok := fe.Value().(string); ok {
			return passwordProblem(str)
		}
		return "is too weak"
	case "datetime":
		return "must be a date formatted YYYY-MM-DD"
	case "notfuture":
		return "cannot be in the future"
	default:
		return "is invalid"
	}
}
