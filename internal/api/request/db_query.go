package request

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/balu-dk/e3dc-gateway/internal/e3dc"
)

// DBQueryArgs are the resolved query arguments of GET /api/db_data.
type DBQueryArgs struct {
	StartDate time.Time
	Timespan  e3dc.Timespan
}

type dbQuery struct {
	StartDate string `query:"startDate" validate:"omitempty,datetime=2006-01-02"`
	Timespan  string `query:"timespan" validate:"omitempty,oneof=DAY MONTH YEAR"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("query"), ",")
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// ParseDBQuery resolves the db_data query arguments. A missing startDate
// defaults to the date of now, a missing timespan to DAY.
func ParseDBQuery(q url.Values, now time.Time) (DBQueryArgs, error) {
	raw := dbQuery{
		StartDate: q.Get("startDate"),
		Timespan:  q.Get("timespan"),
	}

	if err := validate.Struct(raw); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return DBQueryArgs{}, queryError(fieldErrs[0])
		}
		return DBQueryArgs{}, &MalformedError{Message: err.Error()}
	}

	args := DBQueryArgs{
		StartDate: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()),
		Timespan:  e3dc.TimespanDay,
	}
	if raw.StartDate != "" {
		d, err := time.ParseInLocation(time.DateOnly, raw.StartDate, now.Location())
		if err != nil {
			return DBQueryArgs{}, &MalformedError{Field: "startDate", Message: fmt.Sprintf("startDate: %v", err)}
		}
		args.StartDate = d
	}
	if raw.Timespan != "" {
		args.Timespan = e3dc.Timespan(raw.Timespan)
	}
	return args, nil
}

func queryError(fe validator.FieldError) error {
	var msg string
	switch fe.Tag() {
	case "oneof":
		msg = fmt.Sprintf("%s must be one of %s, got %q", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "), fe.Value())
	case "datetime":
		msg = fmt.Sprintf("%s must be a date in YYYY-MM-DD format, got %q", fe.Field(), fe.Value())
	default:
		msg = fmt.Sprintf("%s is invalid", fe.Field())
	}
	return &MalformedError{Field: fe.Field(), Message: msg}
}
