package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewStore(mock), mock
}

func TestStore_Get(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(getSQL)).
		WithArgs("cart:u1").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow(`[]`))

	got, err := store.Get(context.Background(), "cart:u1")

	require.NoError(t, err)
	assert.Equal(t, `[]`, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(getSQL)).
		WithArgs("cart:none").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.Get(context.Background(), "cart:none")

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetQueryError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(getSQL)).
		WithArgs("k").
		WillReturnError(errors.New("connection reset"))

	_, err := store.Get(context.Background(), "k")

	require.Error(t, err)
	assert.False(t, errors.Is(err, apperrors.ErrNotFound))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestStore_Set(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(upsertSQL)).
		WithArgs("cart:u1", `[{"quantity":2}]`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Set(context.Background(), "cart:u1", `[{"quantity":2}]`))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SetError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(upsertSQL)).
		WithArgs("k", "v").
		WillReturnError(errors.New("disk full"))

	err := store.Set(context.Background(), "k", "v")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert k")
}

func TestStore_Remove(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(deleteSQL)).
		WithArgs("cart:u1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, store.Remove(context.Background(), "cart:u1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
