package echoapi

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/examsurveil/backend/core"
)

const orderingParam = "ordering"

// userOrderingFields are the fields the user list may be ordered by.
var userOrderingFields = []string{"id", "username", "email", "role", "created_at"}

var errInvalidOrdering = errors.New("invalid ordering")

// Ordering is the "?ordering=field,-field" query parameter; a leading "-" sorts descending.
type Ordering struct {
	allowed   []string
	Orderings []core.DBOrdering
}

func newOrdering(allowed ...string) *Ordering {
	return &Ordering{allowed: allowed}
}

// Bind rejects fields outside the allowed set. A field repeated keeps its first direction.
func (ord *Ordering) Bind(ctx echo.Context) error {
	raw := strings.TrimSpace(ctx.QueryParam(orderingParam))
	if raw == "" {
		return nil
	}

	seen := make(map[string]bool)
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		field = strings.TrimPrefix(field, "-")
		if field == "" {
			continue
		}
		if !ord.isAllowed(field) {
			return core.NewValidationError(errInvalidOrdering, core.FieldError{
				Field: orderingParam,
				Error: fmt.Sprintf("cannot order by %q, must be one of: %s", field, strings.Join(ord.allowed, ", ")),
			})
		}
		if seen[field] {
			continue
		}
		seen[field] = true
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
	return nil
}

func (ord *Ordering) isAllowed(field string) bool {
	for _, f := range ord.allowed {
		if f == field {
			return true
		}
	}
	return false
}
