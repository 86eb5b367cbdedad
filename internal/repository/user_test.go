package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"profileapi/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func setupSQLite(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.User{}))
	return db
}

func TestUserRepository_ExistsBySlug(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	countQuery := regexp.QuoteMeta(`SELECT count(*) FROM "users" WHERE slug = $1`)

	tests := []struct {
		name          string
		mockBehavior  func()
		expected      bool
		expectedError bool
	}{
		{
			name: "Exists",
			mockBehavior: func() {
				mock.ExpectQuery(countQuery).WithArgs("alice").
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
			},
			expected: true,
		},
		{
			name: "Missing",
			mockBehavior: func() {
				mock.ExpectQuery(countQuery).WithArgs("alice").
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
			},
		},
		{
			name: "Database Error",
			mockBehavior: func() {
				mock.ExpectQuery(countQuery).WithArgs("alice").
					WillReturnError(errors.New("connection timeout"))
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			exists, err := repo.ExistsBySlug(ctx, "alice")
			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, exists)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_GetByAddress(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	query := regexp.QuoteMeta(`SELECT * FROM "users" WHERE address = $1 AND "users"."deleted_at" IS NULL ORDER BY "users"."id" LIMIT $2`)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("0xabc", 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "address", "username", "slug"}).
				AddRow(1, "0xabc", "Alice", "alice"))

		user, err := repo.GetByAddress(ctx, "0xabc")
		require.NoError(t, err)
		assert.Equal(t, "Alice", user.Username)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("0xdef", 1).
			WillReturnError(gorm.ErrRecordNotFound)

		user, err := repo.GetByAddress(ctx, "0xdef")
		assert.Nil(t, user)
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "NOT_FOUND", appErr.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_Create_UniqueViolation(t *testing.T) {
	tests := []struct {
		name     string
		dbErr    string
		expected error
	}{
		{
			name:     "Slug",
			dbErr:    `ERROR: duplicate key value violates unique constraint "idx_users_slug" (SQLSTATE 23505)`,
			expected: models.ErrUsernameTaken,
		},
		{
			name:     "Address",
			dbErr:    `ERROR: duplicate key value violates unique constraint "idx_users_address" (SQLSTATE 23505)`,
			expected: models.ErrAddressRegistered,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			repo := NewUserRepository(db)

			mock.ExpectBegin()
			mock.ExpectQuery(`INSERT INTO "users"`).WillReturnError(errors.New(tt.dbErr))
			mock.ExpectRollback()

			err := repo.Create(context.Background(), &models.User{Address: "0xabc", Username: "Alice", Slug: "alice"})
			assert.ErrorIs(t, err, tt.expected)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_SQLite(t *testing.T) {
	db := setupSQLite(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{Address: "0x01", Username: "Alice", Slug: "alice"}))
	require.NoError(t, repo.Create(ctx, &models.User{Address: "0x02", Username: "Bob", Slug: "bob"}))

	t.Run("duplicate slug maps to username taken", func(t *testing.T) {
		err := repo.Create(ctx, &models.User{Address: "0x03", Username: "ALICE", Slug: "alice"})
		assert.ErrorIs(t, err, models.ErrUsernameTaken)
	})

	t.Run("duplicate address maps to address registered", func(t *testing.T) {
		err := repo.Create(ctx, &models.User{Address: "0x01", Username: "Carol", Slug: "carol"})
		assert.ErrorIs(t, err, models.ErrAddressRegistered)
	})

	t.Run("exists by slug", func(t *testing.T) {
		exists, err := repo.ExistsBySlug(ctx, "bob")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsBySlug(ctx, "carol")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("get by slug", func(t *testing.T) {
		user, err := repo.GetBySlug(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "0x01", user.Address)

		user, err = repo.GetBySlug(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("get by addresses", func(t *testing.T) {
		users, err := repo.GetByAddresses(ctx, []string{"0x01", "0x02", "0x99"})
		require.NoError(t, err)
		assert.Len(t, users, 2)
	})

	t.Run("update username", func(t *testing.T) {
		user, err := repo.UpdateUsername(ctx, "0x02", "Bobby", "bobby")
		require.NoError(t, err)
		assert.Equal(t, "Bobby", user.Username)

		_, err = repo.UpdateUsername(ctx, "0x01", "BOBBY", "bobby")
		assert.ErrorIs(t, err, models.ErrUsernameTaken)

		_, err = repo.UpdateUsername(ctx, "0x99", "Zed", "zed")
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "NOT_FOUND", appErr.Code)
	})

	t.Run("soft deleted slug still counts", func(t *testing.T) {
		require.NoError(t, db.Where("address = ?", "0x02").Delete(&models.User{}).Error)
		exists, err := repo.ExistsBySlug(ctx, "bobby")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("list and count", func(t *testing.T) {
		users, err := repo.List(ctx, 10, 0)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "0x01", users[0].Address)

		count, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}
