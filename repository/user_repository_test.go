package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/arjunhariram/ent-web/test"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userColumns = []string{"id", "mobile_number", "password_hash", "created_at", "updated_at"}

func TestUserRepository_GetByMobileNumber(t *testing.T) {
	db, mock := test.NewMockDB(t)
	repo := NewUserRepository(db, 3)
	now := time.Now()

	mock.ExpectQuery("SELECT id, mobile_number, password_hash, created_at, updated_at FROM users WHERE mobile_number").
		WithArgs("9123456789").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(7, "9123456789", "hash", now, now))

	user, err := repo.GetByMobileNumber(context.Background(), testMobile)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, 7, user.ID)
	assert.Equal(t, testMobile, user.MobileNumber)
	assert.Equal(t, "hash", user.PasswordHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByMobileNumber_NotFound(t *testing.T) {
	db, mock := test.NewMockDB(t)
	repo := NewUserRepository(db, 3)

	mock.ExpectQuery("FROM users").
		WithArgs("9123456789").
		WillReturnRows(sqlmock.NewRows(userColumns))

	user, err := repo.GetByMobileNumber(context.Background(), testMobile)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestUserRepository_Exists(t *testing.T) {
	db, mock := test.NewMockDB(t)
	repo := NewUserRepository(db, 3)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM users WHERE mobile_number = $1)")).
		WithArgs("9123456789").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.Exists(context.Background(), testMobile)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create(t *testing.T) {
	db, mock := test.NewMockDB(t)
	repo := NewUserRepository(db, 3)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO users").
		WithArgs("9123456789", "hash").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(1, "9123456789", "hash", now, now))
	mock.ExpectCommit()

	user, err := repo.Create(context.Background(), testMobile, "hash")
	require.NoError(t, err)
	assert.Equal(t, 1, user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_Duplicate(t *testing.T) {
	db, mock := test.NewMockDB(t)
	repo := NewUserRepository(db, 3)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO users").
		WithArgs("9123456789", "hash").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), testMobile, "hash")
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdatePassword(t *testing.T) {
	db, mock := test.NewMockDB(t)
	repo := NewUserRepository(db, 3)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT password_hash FROM users WHERE mobile_number = $1 FOR UPDATE")).
		WithArgs("9123456789").
		WillReturnRows(sqlmock.NewRows([]string{"password_hash"}).AddRow("old-hash"))
	mock.ExpectExec("INSERT INTO user_passwords").
		WithArgs("9123456789", "old-hash").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM user_passwords").
		WithArgs("9123456789", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users").
		WithArgs("new-hash", "9123456789").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpdatePassword(context.Background(), testMobile, "new-hash")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdatePassword_RollsBackOnFailure(t *testing.T) {
	db, mock := test.NewMockDB(t)
	repo := NewUserRepository(db, 3)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("9123456789").
		WillReturnRows(sqlmock.NewRows([]string{"password_hash"}).AddRow("old-hash"))
	mock.ExpectExec("INSERT INTO user_passwords").
		WithArgs("9123456789", "old-hash").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM user_passwords").
		WithArgs("9123456789", 3).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE users").
		WithArgs("new-hash", "9123456789").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.UpdatePassword(context.Background(), testMobile, "new-hash")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdatePassword_UnknownUser(t *testing.T) {
	db, mock := test.NewMockDB(t)
	repo := NewUserRepository(db, 3)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("9123456789").
		WillReturnRows(sqlmock.NewRows([]string{"password_hash"}))
	mock.ExpectRollback()

	err := repo.UpdatePassword(context.Background(), testMobile, "new-hash")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_RecentPasswordHashes(t *testing.T) {
	db, mock := test.NewMockDB(t)
	repo := NewUserRepository(db, 3)

	mock.ExpectQuery("SELECT password_hash FROM user_passwords").
		WithArgs("9123456789", 3).
		WillReturnRows(sqlmock.NewRows([]string{"password_hash"}).AddRow("h3").AddRow("h2").AddRow("h1"))

	hashes, err := repo.RecentPasswordHashes(context.Background(), testMobile, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"h3", "h2", "h1"}, hashes)
	assert.NoError(t, mock.ExpectationsWereMet())
}
