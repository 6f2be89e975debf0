package response

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginated(t *testing.T) {
	tests := []struct {
		name      string
		perPage   int
		total     int64
		wantPages int
	}{
		{"exact", 10, 30, 3},
		{"remainder", 10, 31, 4},
		{"empty", 10, 0, 0},
		{"zero per page", 0, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := Paginated([]string{}, 1, tt.perPage, tt.total)
			assert.True(t, resp.Success)
			assert.Equal(t, tt.wantPages, resp.Meta.TotalPages)
			assert.Equal(t, tt.total, resp.Meta.Total)
		})
	}
}

func TestErrorBuilders(t *testing.T) {
	assert.Equal(t, ErrCodeNotFound, NotFound("x").Error.Code)
	assert.Equal(t, ErrCodeForbidden, Forbidden("x").Error.Code)
	assert.Equal(t, ErrCodeValidation, ValidationError("x").Error.Code)
	assert.False(t, InternalError("x").Success)

	resp := ErrorWithDetails("EVENT_FULL", "Event is full", "capacity 10")
	assert.Equal(t, "EVENT_FULL", resp.Error.Code)
	assert.Equal(t, "capacity 10", resp.Error.Details)
	assert.Nil(t, resp.Data)
}
