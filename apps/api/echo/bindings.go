package echoapi

import (
	"sort"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/projetogalileu/galileu/core"
	"github.com/projetogalileu/galileu/core/session"
)

var (
	orderingParam = "ordering"

	errUnknownOrdering = errors.New("unknown ordering field")

	// sessionOrderings compares two sessions in ascending order, by field.
	sessionOrderings = map[string]func(a, b session.Session) bool{
		"timestamp": func(a, b session.Session) bool { return a.Timestamp.Before(b.Timestamp) },
		"status":    func(a, b session.Session) bool { return a.Status < b.Status },
	}
)

type orderingField struct {
	Field     string
	Ascending bool
}

// Ordering is bound from "?ordering=field,-other"; a leading "-" means descending.
type Ordering struct {
	Fields []orderingField
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Fields = append(ord.Fields, orderingField{Field: field, Ascending: !descending})
	}
}

// SortSessions sorts sessions in place. It leaves them untouched when no field was asked for.
func (ord *Ordering) SortSessions(sessions []session.Session) error {
	less := make([]func(a, b session.Session) bool, 0, len(ord.Fields))
	for _, f := range ord.Fields {
		cmp, ok := sessionOrderings[f.Field]
		if !ok {
			return core.NewValidationError(nil, core.FieldError{Field: orderingParam, Error: errUnknownOrdering.Error()})
		}
		if !f.Ascending {
			asc := cmp
			cmp = func(a, b session.Session) bool { return asc(b, a) }
		}
		less = append(less, cmp)
	}
	if len(less) == 0 {
		return nil
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		for _, l := range less {
			switch {
			case l(sessions[i], sessions[j]):
				return true
			case l(sessions[j], sessions[i]):
				return false
			}
		}
		return false
	})
	return nil
}
