package meeting_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examsurveil/backend/core"
	"github.com/examsurveil/backend/core/meeting"
	"github.com/examsurveil/backend/tests"
)

func TestTitleLength(t *testing.T) {
	validate, _ := testutil.NewValidator()

	tests := []struct {
		name    string
		title   string
		wantErr bool
	}{
		{name: "ascii at limit", title: strings.Repeat("a", 255)},
		{name: "ascii over limit", title: strings.Repeat("a", 256), wantErr: true},
		{name: "multi-byte", title: strings.Repeat("試", 100)},
		{name: "multi-byte at limit", title: strings.Repeat("試", 255)},
		{name: "multi-byte over limit", title: strings.Repeat("試", 256), wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			nm := meeting.NewMeeting{Title: tc.title}
			createErr := nm.Validate(validate)

			var um meeting.UpdateMeeting
			body, err := json.Marshal(map[string]string{"title": tc.title})
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(body, &um))
			updateErr := um.Validate()

			if tc.wantErr {
				assert.Error(t, createErr)
				if assert.Error(t, updateErr) {
					vErr, ok := updateErr.(*core.ValidationError)
					require.True(t, ok)
					assert.Equal(t, "title", vErr.Fields[0].Field)
				}
				return
			}
			assert.NoError(t, createErr)
			assert.NoError(t, updateErr)
			assert.Equal(t, tc.title, um.Title.Value.String)
		})
	}
}
