package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildListQuery(t *testing.T) {
	tests := []struct {
		name     string
		options  *ListQueryOptions
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "bare table",
			options:  NewListQueryOptions("jobs"),
			wantSQL:  "SELECT * FROM jobs",
			wantArgs: nil,
		},
		{
			name: "columns and single condition",
			options: NewListQueryOptions("uploads",
				WithColumns("id", "name", "ready"),
				WithCondition(WhereCond("ready", Equal, true)),
			),
			wantSQL:  "SELECT id, name, ready FROM uploads WHERE ready = $1",
			wantArgs: []any{true},
		},
		{
			name: "multiple conditions are AND-joined",
			options: NewListQueryOptions("jobs",
				WithCondition(WhereCond("state", Equal, "waiting")),
				WithCondition(WhereCond("user_id", Equal, "user-1")),
			),
			wantSQL:  "SELECT * FROM jobs WHERE state = $1 AND user_id = $2",
			wantArgs: []any{"waiting", "user-1"},
		},
		{
			name: "order limit offset",
			options: NewListQueryOptions("uploads",
				WithCondition(WhereCond("removed", Equal, false)),
				WithOrderBy("created_at", "DESC"),
				WithLimit(25),
				WithOffset(50),
			),
			wantSQL:  "SELECT * FROM uploads WHERE removed = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
			wantArgs: []any{false, 25, 50},
		},
		{
			name: "in condition uses ANY",
			options: NewListQueryOptions("jobs",
				WithCondition(WhereCond("workflow", In, []string{"trim_reads", "build_index"})),
			),
			wantSQL:  "SELECT * FROM jobs WHERE workflow = ANY($1)",
			wantArgs: []any{[]string{"trim_reads", "build_index"}},
		},
		{
			name: "identifier injection is stripped",
			options: NewListQueryOptions("jobs; DROP TABLE jobs",
				WithCondition(WhereCond(`state"; --`, Equal, "waiting")),
				WithOrderBy("created_at; SELECT", "desc"),
			),
			wantSQL:  "SELECT * FROM jobsDROPTABLEjobs WHERE state = $1 ORDER BY created_atSELECT DESC",
			wantArgs: []any{"waiting"},
		},
		{
			name: "unknown order direction defaults to ASC",
			options: NewListQueryOptions("labels",
				WithOrderBy("name", "sideways"),
			),
			wantSQL:  "SELECT * FROM labels ORDER BY name ASC",
			wantArgs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := BuildListQuery(tt.options)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}
