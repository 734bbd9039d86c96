package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"bookclub/internal/models"
	"bookclub/internal/storage"
	"bookclub/internal/storage/storagetest"
)

func TestUserRepository_ListUsers(t *testing.T) {
	db := storagetest.OpenDB(t)
	repo := storage.NewGormUserRepository(db)
	ctx := context.Background()

	for _, name := range []string{"alice", "bob", "carol"} {
		require.NoError(t, repo.Create(ctx, &models.User{Username: name, PasswordHash: "secret", Email: name + "@example.com"}))
	}

	users, err := repo.ListUsers(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "alice", users[0].Username)
	assert.Empty(t, users[0].PasswordHash)
	assert.Empty(t, users[0].Email)

	page, err := repo.ListUsers(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "bob", page[0].Username)
	assert.Equal(t, "carol", page[1].Username)
}

func countRows(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func TestUserRepository_DeleteAccount(t *testing.T) {
	db := storagetest.OpenDB(t)
	repo := storage.NewGormUserRepository(db)
	groups := storage.NewGormGroupRepository(db)
	lists := storage.NewGormReadingListRepository(db)
	ctx := context.Background()

	bob := &models.User{Username: "bob", PasswordHash: "x"}
	carol := &models.User{Username: "carol", PasswordHash: "x"}
	require.NoError(t, repo.Create(ctx, bob))
	require.NoError(t, repo.Create(ctx, carol))

	require.NoError(t, db.Create(&models.Friendship{UserID1: bob.ID, UserID2: carol.ID}).Error)
	require.NoError(t, storage.NewGormFriendRequestRepository(db).Create(ctx, &models.FriendRequest{RequesterUserID: carol.ID, RecipientUserID: bob.ID}))
	list := &models.ReadingList{Name: "summer", OwnerID: bob.ID}
	require.NoError(t, lists.Create(ctx, list))
	require.NoError(t, lists.AddBook(ctx, list.ID, 1))
	carolsList := &models.ReadingList{Name: "summer", OwnerID: carol.ID}
	require.NoError(t, lists.Create(ctx, carolsList))
	require.NoError(t, lists.AddBook(ctx, carolsList.ID, 1))
	require.NoError(t, storage.NewGormPostRepository(db).Create(ctx, &models.Post{AuthorID: bob.ID, Content: "hi"}))

	group := &models.Group{Name: "Club", AdminID: carol.ID}
	require.NoError(t, groups.CreateGroup(ctx, group))
	require.NoError(t, groups.AddMember(ctx, &models.GroupMember{GroupID: group.ID, UserID: bob.ID, Role: models.MemberRole, JoinedAt: time.Now()}))

	// 仍在群组中时整个删除回滚
	assert.ErrorIs(t, repo.DeleteAccount(ctx, bob.ID), storage.ErrUserHasMemberships)
	_, err := repo.GetByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, countRows(t, db, &models.Post{}, "author_id = ?", bob.ID))

	require.NoError(t, groups.RemoveMember(ctx, group.ID, bob.ID))
	require.NoError(t, repo.DeleteAccount(ctx, bob.ID))

	_, err = repo.GetByID(ctx, bob.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Zero(t, countRows(t, db, &models.Friendship{}, "user_id1 = ? OR user_id2 = ?", bob.ID, bob.ID))
	assert.Zero(t, countRows(t, db, &models.FriendRequest{}, "requester_user_id = ? OR recipient_user_id = ?", bob.ID, bob.ID))
	assert.Zero(t, countRows(t, db, &models.ReadingList{}, "owner_id = ?", bob.ID))
	assert.Zero(t, countRows(t, db, &models.ReadingListBook{}, "reading_list_id = ?", list.ID))
	assert.Zero(t, countRows(t, db, &models.Post{}, "author_id = ?", bob.ID))

	// carol 的数据不受影响
	assert.EqualValues(t, 1, countRows(t, db, &models.ReadingListBook{}, "reading_list_id = ?", carolsList.ID))
	_, err = repo.GetByID(ctx, carol.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, repo.DeleteAccount(ctx, bob.ID), gorm.ErrRecordNotFound)
}
