package postgres

import (
	"context"
	"errors"
	"io/fs"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalog/internal/repository"
)

func TestStore_WithinTx_Commit(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM product_categories").
		WithArgs(int64(1), []int64{2}).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("INSERT INTO product_categories").
		WithArgs(int64(1), []int64{3}).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(r repository.Repositories) error {
		if _, err := r.Associations.DeleteExcept(context.Background(), 1, []int64{2}); err != nil {
			return err
		}
		return r.Associations.Insert(context.Background(), 1, []int64{3})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithinTx_RollbackOnError(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := store.WithinTx(context.Background(), func(repository.Repositories) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithinTx_BeginError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin().WillReturnError(errors.New("pool closed"))

	err := NewStore(mock).WithinTx(context.Background(), func(repository.Repositories) error {
		t.Fatal("fn must not run")
		return nil
	})
	assert.ErrorContains(t, err, "begin transaction")
}

func TestStore_Ping(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectPing()
	assert.NoError(t, NewStore(mock).Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssociationRepository_DeleteExcept_EmptyKeepClearsAll(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec("DELETE FROM product_categories").
		WithArgs(int64(4), []int64{}).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	n, err := NewAssociationRepository(mock).DeleteExcept(context.Background(), 4, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestAssociationRepository_Insert_EmptyIsNoop(t *testing.T) {
	mock := newMock(t)
	require.NoError(t, NewAssociationRepository(mock).Insert(context.Background(), 4, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssociationRepository_CategoryIDs(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("SELECT category_id FROM product_categories").
		WithArgs(int64(4)).
		WillReturnRows(pgxmock.NewRows([]string{"category_id"}).AddRow(int64(2)).AddRow(int64(3)))

	ids, err := NewAssociationRepository(mock).CategoryIDs(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, ids)
}

func TestMigrations_Embedded(t *testing.T) {
	names, err := fs.Glob(Migrations(), "*.up.sql")
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_catalog.up.sql"}, names)
}
