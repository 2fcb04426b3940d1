package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"oftalmonet/valeda-app/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const dateLayout = "2006-01-02"

var registerOnce sync.Once

// registerValidators adds the custom binding tags to gin's validator engine.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
			return domain.ValidSessionTime(strings.TrimSpace(fl.Field().String()))
		})
		_ = v.RegisterValidation("treatmenttype", func(fl validator.FieldLevel) bool {
			return domain.TreatmentType(fl.Field().String()).IsValid()
		})
	})
}

// bindJSON binds the body and aborts with a 400 envelope on failure.
func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		abortWithValidation(c, bindingViolations(err))
		return false
	}
	return true
}

// bindingViolations turns binding errors into readable messages.
func bindingViolations(err error) []string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		out := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			out = append(out, fieldMessage(fe))
		}
		return out
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return []string{fmt.Sprintf("%s has the wrong type", typeErr.Field)}
	}
	return []string{err.Error()}
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s cannot have more than %s items", field, fe.Param())
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s cannot exceed %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "hhmm":
		return field + " must be in HH:MM format"
	case "treatmenttype":
		return fmt.Sprintf("%s %q is not a valid treatment type", field, fe.Value())
	}
	return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
}

// Date accepts either an RFC 3339 timestamp or a plain YYYY-MM-DD date.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	t, _, err := parseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// parseDate parses RFC 3339 or YYYY-MM-DD, reporting whether the value was
// a date without a time of day. Results are in UTC.
func parseDate(s string) (t time.Time, dateOnly bool, err error) {
	s = strings.TrimSpace(s)
	if t, err = time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), false, nil
	}
	if t, err = time.Parse(dateLayout, s); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, fmt.Errorf("invalid date %q: use YYYY-MM-DD or RFC 3339", s)
}

// parseDateQuery reads an optional date query parameter. A date-only upper
// bound covers the whole day.
func parseDateQuery(c *gin.Context, key string, endOfDay bool) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	t, dateOnly, err := parseDate(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	if dateOnly && endOfDay {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	return &t, nil
}

// parseQueryInt returns the integer value of key, or 0 when it is absent or
// malformed so the pagination defaults apply.
func parseQueryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}
