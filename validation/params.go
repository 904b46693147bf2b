package validation

import (
	"errors"
	"net/url"
	"posts-api/models"
	"regexp"
	"strings"
	"time"
)

var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// IsValidUUID reports whether s has the canonical 8-4-4-4-12 hex grouping.
func IsValidUUID(s string) bool {
	return uuidRegex.MatchString(s)
}

// OwnerMe is the owner filter value that stands for the calling user.
const OwnerMe = "me"

var (
	ErrUnexpectedParameter = errors.New("Request contains unexpected parameters.")
	ErrInvalidRoute        = errors.New("Invalid value for parameter 'route'.")
	ErrInvalidExpire       = errors.New("Invalid value for parameter 'expire'.")
	ErrInvalidID           = errors.New("Invalid value for parameter 'id'.")
	ErrMalformedQuery      = errors.New("Malformed query string.")
)

var listParams = map[string]struct{}{
	"expire": {},
	"route":  {},
	"owner":  {},
}

// ParseListFilter turns the raw query of GET /posts into a store filter.
// Empty values count as absent. A query with any pair that does not decode
// is rejected as a whole.
func ParseListFilter(rawQuery string, callerID string, now time.Time) (models.PostFilter, error) {
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return models.PostFilter{}, ErrMalformedQuery
	}

	for param := range query {
		if _, ok := listParams[param]; !ok {
			return models.PostFilter{}, ErrUnexpectedParameter
		}
	}

	filter := models.PostFilter{Now: now.UTC()}

	if route := query.Get("route"); route != "" {
		if !IsValidUUID(route) {
			return models.PostFilter{}, ErrInvalidRoute
		}
		filter.RouteID = route
	}

	if expire := query.Get("expire"); expire != "" {
		switch strings.ToLower(expire) {
		case "true":
			expired := true
			filter.Expired = &expired
		case "false":
			expired := false
			filter.Expired = &expired
		default:
			return models.PostFilter{}, ErrInvalidExpire
		}
	}

	if owner := query.Get("owner"); owner != "" {
		if owner == OwnerMe {
			owner = callerID
		}
		filter.UserID = owner
	}

	return filter, nil
}
