package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{
		CreatedAt: time.Date(2026, 3, 1, 18, 4, 5, 123456789, time.FixedZone("CST", -6*3600)),
		ID:        uuid.New(),
	}
	token := EncodeCursor(in)
	assert.NotContains(t, token, "=")
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")

	out, err := ParseCursor(token)
	require.NoError(t, err)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, in.ID, out.ID)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	c, err := ParseCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, c)

	for _, bad := range []string{"%%%", "bm9waXBl", "MjAyNi0wMy0wMXxub3QtYS11dWlk"} {
		_, err := ParseCursor(bad)
		assert.Error(t, err, bad)
	}
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, DefaultLimit, NormalizeLimit(-3))
	assert.Equal(t, 10, NormalizeLimit(10))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+1))
}

type row struct {
	ID        uuid.UUID
	CreatedAt time.Time
}

func TestTrim(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := []row{
		{uuid.New(), base.Add(3 * time.Minute)},
		{uuid.New(), base.Add(2 * time.Minute)},
		{uuid.New(), base.Add(time.Minute)},
	}
	key := func(r row) Cursor { return Cursor{CreatedAt: r.CreatedAt, ID: r.ID} }

	page, next := Trim(rows, 2, key)
	require.Len(t, page, 2)
	require.NotNil(t, next)
	assert.Equal(t, rows[1].ID, next.ID)

	page, next = Trim(rows, 5, key)
	assert.Len(t, page, 3)
	assert.Nil(t, next)
}

func TestApplyBuildsKeysetQuery(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{DryRun: true})
	require.NoError(t, err)

	var rows []row
	stmt := Apply(conn.Table("cash_sessions"), "opened_at", &Cursor{CreatedAt: time.Now(), ID: uuid.New()}, 10).
		Find(&rows).Statement
	sql := stmt.SQL.String()
	assert.Contains(t, sql, "opened_at < ? OR (opened_at = ? AND id < ?)")
	assert.Contains(t, sql, "ORDER BY opened_at DESC,id DESC")
	assert.Contains(t, sql, "LIMIT 11")
	assert.Len(t, stmt.Vars, 3)
}
