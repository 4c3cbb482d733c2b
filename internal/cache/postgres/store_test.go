package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitegrade/sitegrade/internal/cache"
	"github.com/sitegrade/sitegrade/internal/grade"
)

func sampleEntry(t *testing.T) grade.Entry {
	t.Helper()
	score := 82
	letter := grade.LetterA
	return grade.Entry{
		URL:  "example.com",
		Site: grade.Snapshot{Pages: []grade.Page{{Title: "Example", URL: "https://example.com", Text: "welcome"}}},
		Report: grade.Report{
			OverallScore: &score,
			GradeLetter:  &letter,
			Categories: map[string]grade.Category{
				grade.CategorySEO: {Score: 88, Findings: []string{"a", "b", "c"}, Recommendation: "r"},
			},
		},
		CreatedAt: time.Unix(1700000000, 0).UTC(),
	}
}

func TestNewStoreWithPoolValidatesTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewStoreWithPool(mock, "bad; drop table")
	require.Error(t, err)

	store, err := NewStoreWithPool(mock, "")
	require.NoError(t, err)
	assert.Equal(t, "site_reports", store.table)
}

func TestWriteUpsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewStoreWithPool(mock, "site_reports")
	require.NoError(t, err)

	entry := sampleEntry(t)
	siteJSON, err := json.Marshal(entry.Site)
	require.NoError(t, err)
	reportJSON, err := json.Marshal(entry.Report)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO site_reports").
		WithArgs(entry.URL, siteJSON, []byte(nil), reportJSON, entry.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Write(context.Background(), entry))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteRequiresURL(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewStoreWithPool(mock, "site_reports")
	require.NoError(t, err)

	err = store.Write(context.Background(), grade.Entry{})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLookupReturnsEntry(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewStoreWithPool(mock, "site_reports")
	require.NoError(t, err)

	entry := sampleEntry(t)
	siteJSON, err := json.Marshal(entry.Site)
	require.NoError(t, err)
	reportJSON, err := json.Marshal(entry.Report)
	require.NoError(t, err)

	rows := pgxmock.NewRows([]string{"site_snapshot", "profile_snapshot", "grading_record", "created_at"}).
		AddRow(siteJSON, []byte(nil), reportJSON, entry.CreatedAt)
	mock.ExpectQuery("SELECT site_snapshot, profile_snapshot, grading_record, created_at").
		WithArgs("example.com").
		WillReturnRows(rows)

	got, err := store.Lookup(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, entry.Site, got.Site)
	assert.Nil(t, got.Profile)
	require.NotNil(t, got.Report.OverallScore)
	assert.Equal(t, 82, *got.Report.OverallScore)
	assert.True(t, got.Report.Complete())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLookupMissMapsToErrNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewStoreWithPool(mock, "site_reports")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT site_snapshot, profile_snapshot, grading_record, created_at").
		WithArgs("missing.com").
		WillReturnError(pgx.ErrNoRows)

	_, err = store.Lookup(context.Background(), "missing.com")
	require.ErrorIs(t, err, cache.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
