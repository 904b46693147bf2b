package validation

import (
	"errors"
	"fmt"
	"posts-api/models"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-playground/validator/v10"
)

// ValidationError maps each offending field of a payload to its messages.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field, messages := range e.Fields {
		fields = append(fields, fmt.Sprintf("%s: %s", field, strings.Join(messages, " ")))
	}
	sort.Strings(fields)
	return "validation errors: " + strings.Join(fields, ", ")
}

func (e *ValidationError) add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

var ErrInvalidExpiration = errors.New("expiration date must be later than the creation date")

const (
	msgMissingField    = "Missing data for required field."
	msgInvalidString   = "Not a valid string."
	msgInvalidDateTime = "Not a valid datetime."
)

type newPost struct {
	RouteID   string    `json:"routeId" validate:"required"`
	UserID    string    `json:"userId" validate:"required"`
	ExpireAt  time.Time `json:"expireAt"`
	CreatedAt time.Time `json:"createdAt"`
}

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// ParseDateTime accepts any common date-time layout. Values without a zone
// are read as UTC; the result is UTC truncated to whole seconds.
func ParseDateTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty date-time")
	}
	t, err := dateparse.ParseIn(value, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC().Truncate(time.Second), nil
}

// ValidateNewPost checks a create request on behalf of userID and returns
// the normalized post without an ID. Malformed input yields a
// *ValidationError; an expiration not after createdAt yields
// ErrInvalidExpiration.
func ValidateNewPost(req models.CreatePostRequest, userID string, createdAt time.Time) (models.Post, error) {
	verr := &ValidationError{}

	var routeID string
	switch v := req.RouteID.(type) {
	case nil:
		verr.add("routeId", msgMissingField)
	case string:
		routeID = v
	default:
		verr.add("routeId", msgInvalidString)
	}

	var expireAt time.Time
	switch v := req.ExpireAt.(type) {
	case nil:
		verr.add("expireAt", msgMissingField)
	case string:
		parsed, err := ParseDateTime(v)
		if err != nil {
			verr.add("expireAt", msgInvalidDateTime)
		} else {
			expireAt = parsed
		}
	default:
		verr.add("expireAt", msgInvalidDateTime)
	}

	candidate := newPost{
		RouteID:   routeID,
		UserID:    userID,
		ExpireAt:  expireAt,
		CreatedAt: createdAt.UTC().Truncate(time.Second),
	}

	if err := validate.Struct(candidate); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return models.Post{}, err
		}
		for _, fe := range fieldErrs {
			if _, reported := verr.Fields[fe.Field()]; reported {
				continue
			}
			verr.add(fe.Field(), messageForTag(fe.Tag()))
		}
	}

	if len(verr.Fields) > 0 {
		return models.Post{}, verr
	}

	if !candidate.ExpireAt.After(candidate.CreatedAt) {
		return models.Post{}, ErrInvalidExpiration
	}

	return models.Post{
		RouteID:   candidate.RouteID,
		UserID:    candidate.UserID,
		ExpireAt:  candidate.ExpireAt,
		CreatedAt: candidate.CreatedAt,
	}, nil
}

func messageForTag(tag string) string {
	switch tag {
	case "required":
		return msgMissingField
	default:
		return "Failed on the '" + tag + "' rule."
	}
}
