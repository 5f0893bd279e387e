package http

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/robertarktes/studio-bookings/internal/domain"
)

const dateOnly = "2006-01-02"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterValidation("studiodate", studioDate)
	v.RegisterValidation("notbefore", notBefore)
	return v
}

var studioDate validator.Func = func(fl validator.FieldLevel) bool {
	_, err := parseDate(fl.Field().String())
	return err == nil
}

// notBefore checks a date field against the sibling field named by the param.
// An unparsable sibling is reported by its own rule.
var notBefore validator.Func = func(fl validator.FieldLevel) bool {
	end, err := parseDate(fl.Field().String())
	if err != nil {
		return false
	}
	other := fl.Parent().FieldByName(fl.Param())
	if !other.IsValid() || other.Kind() != reflect.String {
		return false
	}
	start, err := parseDate(other.String())
	if err != nil {
		return true
	}
	return !end.Before(start)
}

// parseDate accepts RFC 3339 timestamps and plain calendar dates.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(dateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, domain.InvalidInputf("invalid date %q", s)
}

// decode reads a JSON body into dst and runs struct validation on it.
func decode(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.InvalidInputf("malformed request body: %s", err.Error())
	}
	return check(dst)
}

func check(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(err, "validate request")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return domain.InvalidInputf("%s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fieldPath(fe)
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "studiodate":
		return field + " must be a date (YYYY-MM-DD or RFC 3339)"
	case "notbefore":
		return field + " must not be before " + lowerFirst(fe.Param())
	case "email":
		return field + " must be a valid email address"
	case "oneof":
		return field + " must be one of: " + fe.Param()
	case "gt":
		return field + " must be greater than " + fe.Param()
	case "gte", "min":
		return field + " must be at least " + fe.Param()
	case "lte", "max":
		return field + " must be at most " + fe.Param()
	}
	return field + " is invalid"
}

// fieldPath drops the top-level struct name from the namespace so
// "createBookingRequest.equipmentList[0].equipmentId" reads
// "equipmentList[0].equipmentId".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
