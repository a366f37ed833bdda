package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/paiban/crewdispatch/pkg/errors"
	"github.com/paiban/crewdispatch/pkg/model"
)

func TestBuildJobUpdates(t *testing.T) {
	plan := model.AssignmentPlan{
		ID:   "plan-1",
		Date: "2025-01-14",
		Entries: []model.PlanEntry{
			{JobID: "j1", StartTime: "08:00", TechIDs: []string{"a", "b"}, TechNames: []string{"Ann", "Bo"}, VehicleID: "v1"},
			{JobID: "j2", Failed: true},
			{JobID: "j3", Date: "2025-01-15", TechIDs: []string{"c"}},
		},
	}

	updates := BuildJobUpdates(plan)
	require.Len(t, updates, 2)

	assert.Equal(t, "j1", updates[0].JobID)
	assert.Equal(t, "a", updates[0].AssignedTechID)
	assert.Equal(t, "2025-01-14", updates[0].ScheduledDate)
	assert.Equal(t, "08:00", updates[0].ScheduledTime)
	assert.Equal(t, "v1", updates[0].VehicleID)
	require.Len(t, updates[0].AssignedCrew, 2)
	assert.Equal(t, "lead", updates[0].AssignedCrew[0].Role)
	assert.Equal(t, "helper", updates[0].AssignedCrew[1].Role)

	assert.Equal(t, "j3", updates[1].JobID)
	assert.Equal(t, "2025-01-15", updates[1].ScheduledDate)
}

func TestBuildJobUpdates_Empty(t *testing.T) {
	assert.Empty(t, BuildJobUpdates(model.AssignmentPlan{}))
}

func TestSafeOrderBy(t *testing.T) {
	tests := []struct {
		name   string
		filter ListFilter
		want   string
	}{
		{"默认字段", ListFilter{}, "id ASC"},
		{"允许字段降序", ListFilter{OrderBy: "scheduled_date", OrderDir: "DESC"}, "scheduled_date DESC"},
		{"非法字段回退", ListFilter{OrderBy: "id; DROP TABLE jobs", OrderDir: "desc"}, "id DESC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, safeOrderBy(tt.filter, "id", "scheduled_date"))
		})
	}
}

func TestJSONHelpers(t *testing.T) {
	b, err := toJSON([]string(nil))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))

	var skills []string
	require.NoError(t, fromJSON(nil, &skills))
	assert.Nil(t, skills)
	require.NoError(t, fromJSON([]byte(`["hvac"]`), &skills))
	assert.Equal(t, []string{"hvac"}, skills)

	assert.Error(t, fromJSON([]byte(`{bad`), &skills))
}

type fakeResult struct{ rows int64 }

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.rows, nil }

type fakeDB struct {
	rows  int64
	calls int
}

func (f *fakeDB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	f.calls++
	return fakeResult{rows: f.rows}, nil
}

func (f *fakeDB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, sql.ErrConnDone
}

func (f *fakeDB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

func TestApplyJobUpdate(t *testing.T) {
	u := JobUpdate{JobID: "j1", AssignedTechID: "a"}

	db := &fakeDB{rows: 1}
	require.NoError(t, applyJobUpdate(context.Background(), db, u))
	assert.Equal(t, 1, db.calls)

	missing := &fakeDB{rows: 0}
	err := applyJobUpdate(context.Background(), missing, u)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "j1")
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestListActive_QueryError(t *testing.T) {
	repo := NewTechnicianRepository(&fakeDB{})
	_, err := repo.ListActive(context.Background())
	assert.ErrorIs(t, err, sql.ErrConnDone)
}
