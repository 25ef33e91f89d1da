package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/shopspring/decimal"
)

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Message string   `json:"message"`          // Error message
	Errors  []string `json:"errors,omitempty"` // Field violations
	Error   string   `json:"error,omitempty"`  // Diagnostic detail, never set in production
}

// ValidationError lists every field violation of a rejected payload.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

const PasswordSymbols = "@$!%*?&"

var (
	personNamePattern = regexp.MustCompile(`^[a-zA-Z\s]{2,50}$`)
	swiftCodePattern  = regexp.MustCompile(`^[A-Z0-9]{8,11}$`)
	amountPattern     = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)
)

var customMessages = map[string]string{
	"personname":     "{0} must be 2-50 letters and spaces only",
	"strongpassword": "{0} must be at least 8 characters with uppercase, lowercase, number, and special character (" + PasswordSymbols + ")",
	"swift":          "{0} must be 8-11 uppercase letters or digits",
	"amount":         "{0} must be a positive number with at most 2 decimal places",
}

// ValidationHelper provides shared validation functionality
type ValidationHelper struct {
	validator  *validator.Validate
	translator ut.Translator
}

// NewValidationHelper creates a new validation helper
func NewValidationHelper() *ValidationHelper {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return IsPersonName(fl.Field().String())
	})
	v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return IsStrongPassword(fl.Field().String())
	})
	v.RegisterValidation("swift", func(fl validator.FieldLevel) bool {
		return IsSwiftCode(fl.Field().String())
	})
	v.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		_, err := ParseAmount(fl.Field().String())
		return err == nil
	})

	english := en.New()
	trans, _ := ut.New(english, english).GetTranslator("en")
	en_translations.RegisterDefaultTranslations(v, trans)
	for tag, text := range customMessages {
		registerMessage(v, trans, tag, text)
	}

	return &ValidationHelper{
		validator:  v,
		translator: trans,
	}
}

// customMessageFor renders a custom tag message for field outside a validator run.
func customMessageFor(tag, field string) string {
	return strings.Replace(customMessages[tag], "{0}", field, 1)
}

func registerMessage(v *validator.Validate, trans ut.Translator, tag, text string) {
	v.RegisterTranslation(tag, trans, func(t ut.Translator) error {
		return t.Add(tag, text, true)
	}, func(t ut.Translator, fe validator.FieldError) string {
		msg, _ := t.T(tag, fe.Field())
		return msg
	})
}

// ValidateStruct validates a struct and returns validation errors
func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// Check validates s and converts failures into a *ValidationError.
func (vh *ValidationHelper) Check(s any) error {
	err := vh.validator.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, fe.Translate(vh.translator))
	}
	return &ValidationError{Fields: messages}
}

// Sanitizable inputs return a trimmed and escaped copy of themselves.
type Sanitizable[T any] interface {
	Sanitized() T
}

// Prepare sanitizes a copy of in and validates it. The copy is returned only
// when every rule passes, so callers never observe half-sanitized input.
func Prepare[T Sanitizable[T]](vh *ValidationHelper, in T) (T, error) {
	out := in.Sanitized()
	if err := vh.Check(out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// SanitizeText trims s and escapes HTML metacharacters.
func SanitizeText(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}

// NormalizeEmail sanitizes an address and folds it to lower case.
func NormalizeEmail(s string) string {
	return strings.ToLower(SanitizeText(s))
}

func IsPersonName(s string) bool {
	return personNamePattern.MatchString(s)
}

func IsSwiftCode(s string) bool {
	return swiftCodePattern.MatchString(s)
}

// IsStrongPassword requires 8+ characters with a lowercase letter, an
// uppercase letter, a digit and one of PasswordSymbols.
func IsStrongPassword(s string) bool {
	if utf8.RuneCountInString(s) < 8 {
		return false
	}

	var lower, upper, digit, symbol bool
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case unicode.IsDigit(r) && r < utf8.RuneSelf:
			digit = true
		case strings.ContainsRune(PasswordSymbols, r):
			symbol = true
		}
	}
	return lower && upper && digit && symbol
}

// ParseAmount accepts a decimal string with at most two fractional digits
// and a strictly positive value.
func ParseAmount(s string) (decimal.Decimal, error) {
	if !amountPattern.MatchString(s) {
		return decimal.Zero, fmt.Errorf("invalid amount format %q", s)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, errors.New("amount must be greater than 0")
	}
	return d, nil
}

// SendErrorResponse sends a JSON error response
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	errorResp := ErrorResponse{Message: message}
	if validationErr != nil {
		var ve *ValidationError
		var fieldErrs validator.ValidationErrors
		switch {
		case errors.As(validationErr, &ve):
			errorResp.Errors = ve.Fields
		case errors.As(validationErr, &fieldErrs):
			for _, err := range fieldErrs {
				errorResp.Errors = append(errorResp.Errors, fmt.Sprintf("Field '%s' failed on '%s' rule", err.Field(), err.Tag()))
			}
		}
	}

	WriteErrorResponse(w, statusCode, errorResp)
}

// WriteErrorResponse writes a prepared error body.
func WriteErrorResponse(w http.ResponseWriter, statusCode int, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}
