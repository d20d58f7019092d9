package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/moviestore/internal/movies"
	"github.com/angelmondragon/moviestore/pkg/auth/session"
	"github.com/angelmondragon/moviestore/pkg/db/dbtest"
	"github.com/angelmondragon/moviestore/pkg/db/models"
	pkgerrors "github.com/angelmondragon/moviestore/pkg/errors"
)

type mapStore struct {
	lines map[string]int
}

func (m *mapStore) Lines() map[string]int { return m.lines }

func (m *mapStore) SetLines(lines map[string]int) { m.lines = lines }

func TestAddThenRemoveRoundTrips(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(movies.NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()
	movie := dbtest.MustCreateMovie(t, conn, "Heat", "7.50")
	other := dbtest.MustCreateMovie(t, conn, "Ronin", "3.00")

	store := &mapStore{lines: map[string]int{other.ID.String(): 2}}
	before := map[string]int{other.ID.String(): 2}

	_, err = svc.Add(ctx, store, movie.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, store.lines[movie.ID.String()])
	svc.Remove(store, movie.ID)
	assert.Equal(t, before, store.lines)

	_, err = svc.Add(ctx, store, other.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, store.lines[other.ID.String()])
	svc.Remove(store, other.ID)
	assert.Equal(t, before, store.lines)
}

func TestRemoveMissingLineIsNoop(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(movies.NewRepository(conn))
	require.NoError(t, err)

	store := &mapStore{lines: map[string]int{"a": 1}}
	svc.Remove(store, uuid.New())
	assert.Equal(t, map[string]int{"a": 1}, store.lines)
}

func TestAddUnknownMovie(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(movies.NewRepository(conn))
	require.NoError(t, err)

	store := &mapStore{}
	_, err = svc.Add(context.Background(), store, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.Empty(t, store.lines)
}

func TestResolvePricesLinesAndDropsStaleIDs(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(movies.NewRepository(conn))
	require.NoError(t, err)
	a := dbtest.MustCreateMovie(t, conn, "Alpha", "10.00")
	b := dbtest.MustCreateMovie(t, conn, "Beta", "5.00")
	gone := dbtest.MustCreateMovie(t, conn, "Gone", "1.00")
	require.NoError(t, conn.Delete(&models.Movie{}, "id = ?", gone.ID).Error)

	sess := &session.Session{}
	sess.SetLines(map[string]int{
		b.ID.String():    1,
		a.ID.String():    2,
		gone.ID.String(): 4,
		"not-a-uuid":     1,
	})

	summary, err := svc.Resolve(context.Background(), sess)
	require.NoError(t, err)
	require.Len(t, summary.Lines, 2)
	assert.Equal(t, "Alpha", summary.Lines[0].Movie.Title)
	assert.Equal(t, "20", summary.Lines[0].LineTotal.String())
	assert.Equal(t, "Beta", summary.Lines[1].Movie.Title)
	assert.Equal(t, "25.00", summary.Total.StringFixed(2))
	assert.Equal(t, 3, summary.Count)
	assert.Equal(t, []uuid.UUID{a.ID, b.ID}, []uuid.UUID{summary.Lines[0].Movie.ID, summary.Lines[1].Movie.ID})
}

func TestResolveDecimalHasNoDrift(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(movies.NewRepository(conn))
	require.NoError(t, err)
	movie := dbtest.MustCreateMovie(t, conn, "Cents", "0.10")

	store := &mapStore{lines: map[string]int{movie.ID.String(): 3}}
	summary, err := svc.Resolve(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, "0.30", summary.Total.StringFixed(2))
}

func TestClearEmptiesCart(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(movies.NewRepository(conn))
	require.NoError(t, err)

	store := &mapStore{lines: map[string]int{uuid.NewString(): 2}}
	svc.Clear(store)
	assert.Empty(t, store.lines)

	summary, err := svc.Resolve(context.Background(), store)
	require.NoError(t, err)
	assert.True(t, summary.Empty())
	assert.True(t, summary.Total.IsZero())
}
