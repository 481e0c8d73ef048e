package echoapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/examsurveil/backend/core"
)

func TestOrdering_Bind(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    []core.DBOrdering
		wantErr bool
	}{
		{name: "none", query: ""},
		{name: "empty", query: "?ordering="},
		{name: "ascending", query: "?ordering=email", want: []core.DBOrdering{{Field: "email", Ascending: true}}},
		{
			name:  "mixed",
			query: "?ordering=-created_at,%20role",
			want:  []core.DBOrdering{{Field: "created_at"}, {Field: "role", Ascending: true}},
		},
		{name: "repeated keeps first", query: "?ordering=-id,id", want: []core.DBOrdering{{Field: "id"}}},
		{name: "blank entries skipped", query: "?ordering=,-,email", want: []core.DBOrdering{{Field: "email", Ascending: true}}},
		{name: "unknown field", query: "?ordering=email,password", wantErr: true},
	}
	e := echo.New()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/users"+tc.query, nil)
			ord := newOrdering(userOrderingFields...)
			err := ord.Bind(e.NewContext(req, httptest.NewRecorder()))
			if tc.wantErr {
				vErr, ok := err.(*core.ValidationError)
				if assert.True(t, ok, "got %v", err) {
					assert.Equal(t, orderingParam, vErr.Fields[0].Field)
				}
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.want, ord.Orderings)
		})
	}
}
