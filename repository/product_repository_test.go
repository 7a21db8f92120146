package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yvetteluxe63/yvetteluxe/models"
	"github.com/yvetteluxe63/yvetteluxe/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func TestGormProductRepository_ListNewestFirst(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormProductRepository(gormDB)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "price", "image_url", "description", "category", "featured", "sizes", "colors", "created_at", "updated_at"}).
		AddRow("p2", "Silk Scarf", "45.50", "", "soft", "accessories", true, []byte(`["M","L"]`), []byte(`null`), now, now).
		AddRow("p1", "Tote", "20", "", "", "bags", false, []byte(`null`), []byte(`["black"]`), now.Add(-time.Hour), now)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "products" ORDER BY created_at DESC`)).
		WillReturnRows(rows)

	products, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "p2", products[0].ID)
	assert.True(t, products[0].Price.Equal(decimal.RequireFromString("45.50")))
	assert.Equal(t, []string{"M", "L"}, products[0].Sizes)
	assert.Equal(t, []string{"black"}, products[1].Colors)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormProductRepository_ListError(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormProductRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "products"`)).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.List(context.Background())
	assert.Error(t, err)
}

func TestGormProductRepository_UpdateNotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormProductRepository(gormDB)

	name := "Renamed"
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "products" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.Update(context.Background(), "missing", models.ProductPatch{Name: &name})
	assert.ErrorIs(t, err, repository.ErrProductNotFound)
}

func TestGormProductRepository_UpdateEmptyPatchIsNoop(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormProductRepository(gormDB)

	assert.NoError(t, repo.Update(context.Background(), "p1", models.ProductPatch{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormProductRepository_Delete(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormProductRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "products" WHERE id = $1`)).
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, repo.Delete(context.Background(), "p1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormProfileRepository_NoRowIsNotAnError(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormProfileRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "profiles"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	p, err := repo.FindByUserID(context.Background(), "u1")
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestGormProfileRepository_Found(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormProfileRepository(gormDB)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "profiles"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "full_name", "created_at", "updated_at"}).
			AddRow("u1", "ama@example.com", "Ama Mensah", now, now))

	p, err := repo.FindByUserID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ama Mensah", p.FullName)
}

func TestGormUserRepository_FindByEmailMissing(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormUserRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}
