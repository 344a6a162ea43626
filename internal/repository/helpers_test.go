package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"thesis-eval/internal/models"
)

func TestAppendPage(t *testing.T) {
	tests := []struct {
		name      string
		page      models.Page
		wantQuery string
		wantArgs  []any
	}{
		{"no limit", models.Page{}, "SELECT 1 WHERE a = $1", []any{"x"}},
		{"limit only", models.Page{Limit: 10}, "SELECT 1 WHERE a = $1 LIMIT $2", []any{"x", 10}},
		{"limit and offset", models.Page{Limit: 10, Offset: 20}, "SELECT 1 WHERE a = $1 LIMIT $2 OFFSET $3", []any{"x", 10, 20}},
		{"offset only", models.Page{Offset: 5}, "SELECT 1 WHERE a = $1 OFFSET $2", []any{"x", 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := appendPage("SELECT 1 WHERE a = $1", []any{"x"}, tt.page)
			assert.Equal(t, tt.wantQuery, query)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}
