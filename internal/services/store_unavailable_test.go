package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"bookclub/internal/services"
	"bookclub/internal/storage"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestStoreFailureSurfacesAsStoreUnavailable(t *testing.T) {
	db, mock := setupMockDB(t)
	groups := services.NewGroupService(db, storage.NewGormGroupRepository(db), services.NewNopEventPublisher())

	mock.ExpectQuery(`SELECT \* FROM "groups"`).WillReturnError(errors.New("connection reset by peer"))

	_, err := groups.GetGroup(context.Background(), "Club")
	require.Error(t, err)
	assert.Equal(t, services.KindStoreUnavailable, services.KindOf(err))
	assert.True(t, errors.Is(err, services.ErrStoreUnavailable))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFriendRequestStoreFailureIsNotRetried(t *testing.T) {
	db, mock := setupMockDB(t)
	friends := services.NewFriendService(db, storage.NewGormUserRepository(db),
		storage.NewGormFriendRequestRepository(db), storage.NewGormFriendshipRepository(db),
		services.NewNopEventPublisher())

	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnError(errors.New("too many connections"))

	_, err := friends.SendRequest(context.Background(), 1, 2)
	require.Error(t, err)
	assert.Equal(t, services.KindStoreUnavailable, services.KindOf(err))
	// 只执行了一次查询
	assert.NoError(t, mock.ExpectationsWereMet())
}
