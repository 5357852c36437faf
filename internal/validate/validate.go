// Package validate checks modal drafts before they are allowed near the
// backend. Every failure is reported against the field that caused it.
package validate

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/ckpayment/ckmodal/internal/modal"
	"github.com/go-playground/validator/v10"
)

var (
	colorPattern = regexp.MustCompile(`^#(?:[0-9A-Fa-f]{3}|[0-9A-Fa-f]{6})$`)
	validate     = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names so errors line up with the wire format.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(v, "color", func(fl validator.FieldLevel) bool {
		return colorPattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "font", func(fl validator.FieldLevel) bool {
		return modal.IsAllowedFont(fl.Field().String())
	})
	mustRegister(v, "weburl", func(fl validator.FieldLevel) bool {
		return IsWebURL(fl.Field().String())
	})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validate: register %s: %v", tag, err))
	}
}

// IsWebURL reports whether s is an absolute http or https URL with a host.
func IsWebURL(s string) bool {
	if s == "" || strings.TrimSpace(s) != s {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// IsColor reports whether s is a #RGB or #RRGGBB color.
func IsColor(s string) bool {
	return colorPattern.MatchString(s)
}

// Draft validates d against the schema and the tokens the selected backend
// instance supports. It returns nil or a *modal.ValidationError.
func Draft(d modal.Draft, supportedTokens []string) error {
	fields := modal.FieldErrors{}

	collect(fields, validate.Struct(d), "")

	if strings.TrimSpace(d.Name) == "" {
		setOnce(fields, "name", "is required")
	}
	if strings.TrimSpace(d.CompanyName) == "" {
		setOnce(fields, "companyName", "is required")
	}

	checkTokens(fields, d.AllowedTokens, supportedTokens)
	checkAmounts(fields, d.MinimumAmount, d.MaximumAmount)
	checkCustomFields(fields, d.CustomFields)

	if len(fields) == 0 {
		return nil
	}
	return &modal.ValidationError{Fields: fields}
}

// Theme validates a theme on its own. Field paths carry the "theme." prefix.
func Theme(t modal.Theme) error {
	fields := modal.FieldErrors{}
	collect(fields, validate.Struct(t), "theme.")
	if len(fields) == 0 {
		return nil
	}
	return &modal.ValidationError{Fields: fields}
}

func collect(fields modal.FieldErrors, err error, prefix string) {
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields[strings.TrimSuffix(prefix, ".")] = err.Error()
		return
	}
	for _, fe := range verrs {
		setOnce(fields, prefix+fieldPath(fe.Namespace()), message(fe))
	}
}

// fieldPath drops the leading struct type name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func setOnce(fields modal.FieldErrors, key, msg string) {
	if _, ok := fields[key]; !ok {
		fields[key] = msg
	}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		if fe.Kind() == reflect.String {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "min":
		switch fe.Kind() {
		case reflect.Slice:
			if fe.Field() == "allowedTokens" {
				return "at least one token must be selected"
			}
			return "must have at least " + fe.Param() + " entries"
		case reflect.String:
			return "must be at least " + fe.Param() + " characters"
		}
		if fe.Param() == "0" {
			return "must not be negative"
		}
		return "must be at least " + fe.Param()
	case "color":
		return "must be a hex color such as #3B82F6"
	case "font":
		return "must be one of the supported fonts"
	case "weburl":
		return "must be a valid http(s) URL"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "is invalid"
	}
}

func checkTokens(fields modal.FieldErrors, tokens, supported []string) {
	if _, bad := fields["allowedTokens"]; bad || len(tokens) == 0 {
		return
	}
	known := make(map[string]bool, len(supported))
	for _, s := range supported {
		known[s] = true
	}
	seen := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		if !known[t] {
			fields["allowedTokens"] = fmt.Sprintf("token %q is not supported by this backend instance", t)
			return
		}
		if seen[t] {
			fields["allowedTokens"] = fmt.Sprintf("token %q is listed more than once", t)
			return
		}
		seen[t] = true
	}
}

func checkAmounts(fields modal.FieldErrors, min, max *float64) {
	if min == nil || max == nil || *min <= *max {
		return
	}
	setOnce(fields, "minimumAmount", "must not exceed the maximum amount")
	setOnce(fields, "maximumAmount", "must be at least the minimum amount")
}

func checkCustomFields(fields modal.FieldErrors, cfs []modal.CustomField) {
	seen := make(map[string]int, len(cfs))
	for i, f := range cfs {
		prefix := fmt.Sprintf("customFields[%d].", i)
		name := strings.TrimSpace(f.Name)
		if name == "" {
			setOnce(fields, prefix+"name", "is required")
		} else if first, dup := seen[name]; dup {
			setOnce(fields, prefix+"name", fmt.Sprintf("duplicates the name of field %d", first+1))
		} else {
			seen[name] = i
		}
		if strings.TrimSpace(f.Label) == "" {
			setOnce(fields, prefix+"label", "is required")
		}
		if f.Type == modal.FieldSelect && len(f.Options) == 0 {
			setOnce(fields, prefix+"options", "select fields need at least one option")
		}
	}
}
