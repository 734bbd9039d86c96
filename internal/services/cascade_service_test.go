package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookclub/internal/models"
	"bookclub/internal/services"
	"bookclub/internal/storage"
)

func TestCascade_UserLeavesGroupRemovesOwnComments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin, u := f.user(t, "admin"), f.user(t, "u")
	g := f.group(t, admin, "Club", u)

	_, err := f.comments.Create(ctx, u, "one", g.ID)
	require.NoError(t, err)
	_, err = f.comments.Create(ctx, u, "two", g.ID)
	require.NoError(t, err)
	kept, err := f.comments.Create(ctx, admin, "admin's", g.ID)
	require.NoError(t, err)

	require.NoError(t, f.cascade.UserLeavesGroup(ctx, u, "Club"))

	mine, err := f.comments.ListByUserInGroup(ctx, g.ID, u)
	require.NoError(t, err)
	assert.Empty(t, mine)

	ok, err := f.groups.IsMember(ctx, g.ID, u)
	require.NoError(t, err)
	assert.False(t, ok)

	all, err := f.comments.ListByGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{kept.ID}, commentIDs(all))
}

func TestCascade_PreconditionsCheckedBeforeDeleting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin, u, v := f.user(t, "admin"), f.user(t, "u"), f.user(t, "v")
	g := f.group(t, admin, "Club", u, v)

	c, err := f.comments.Create(ctx, u, "stay", g.ID)
	require.NoError(t, err)
	_, err = f.comments.Create(ctx, admin, "admin", g.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, f.cascade.AdminRemovesUser(ctx, v, u, "Club"), services.ErrNotAllowed)
	assert.ErrorIs(t, f.cascade.AdminRemovesUser(ctx, admin, admin, "Club"), services.ErrCannotRemoveSelf)
	assert.ErrorIs(t, f.cascade.UserLeavesGroup(ctx, admin, "Club"), services.ErrAdminCannotLeave)
	assert.ErrorIs(t, f.cascade.DeleteGroupCascade(ctx, u, "Club"), services.ErrNotAllowed)
	assert.ErrorIs(t, f.cascade.UserLeavesGroup(ctx, u, "Nowhere"), services.ErrNotFound)

	all, err := f.comments.ListByGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Contains(t, commentIDs(all), c.ID)
}

func TestCascade_DeleteGroupTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin, u := f.user(t, "admin"), f.user(t, "u")
	g := f.group(t, admin, "Club", u)

	root, err := f.comments.Create(ctx, u, "root", g.ID)
	require.NoError(t, err)
	_, err = f.comments.Reply(ctx, admin, "reply", root.ID, g.ID)
	require.NoError(t, err)

	book, err := f.books.NewBook(ctx, "Dune", "Frank Herbert", "", 5)
	require.NoError(t, err)
	require.NoError(t, f.books.AddGroup(ctx, admin, "Dune", "Club"))

	require.NoError(t, f.cascade.DeleteGroupCascade(ctx, admin, "Club"))

	left, err := f.comments.ListByGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, left)

	_, err = f.groups.GetGroup(ctx, "Club")
	assert.ErrorIs(t, err, services.ErrNotFound)

	links, err := f.bookRepo.CountGroupLinks(ctx, g.ID)
	require.NoError(t, err)
	assert.Zero(t, links)
	got, err := f.books.GetBook(ctx, book.Title)
	require.NoError(t, err)
	assert.Empty(t, got.Groups)

	assert.ErrorIs(t, f.cascade.DeleteGroupCascade(ctx, admin, "Club"), services.ErrNotFound)
}

// The scenario from the design notes: the admin's reply to a removed user's
// comment survives, detached into a root comment.
func TestCascade_ClubScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1, u2 := f.user(t, "u1"), f.user(t, "u2")

	g, err := f.groups.CreateGroup(ctx, u1, "Club", "")
	require.NoError(t, err)
	_, err = f.groups.Join(ctx, u2, "Club")
	require.NoError(t, err)

	c1, err := f.comments.Create(ctx, u2, "C1", g.ID)
	require.NoError(t, err)
	c2, err := f.comments.Reply(ctx, u1, "C2", c1.ID, g.ID)
	require.NoError(t, err)

	require.NoError(t, f.cascade.AdminRemovesUser(ctx, u1, u2, "Club"))

	_, err = f.commentRepo.GetByID(ctx, c1.ID)
	assert.Error(t, err)

	survivor, err := f.commentRepo.GetByID(ctx, c2.ID)
	require.NoError(t, err)
	assert.True(t, survivor.IsRoot())

	ok, err := f.groups.IsMember(ctx, g.ID, u2)
	require.NoError(t, err)
	assert.False(t, ok)

	dangling, err := f.commentRepo.FindDangling(ctx)
	require.NoError(t, err)
	assert.Empty(t, dangling)
}

type commentServiceStub struct {
	services.CommentService
	removeFn func(ctx context.Context, commentID, requesterID uint) error
}

func (s *commentServiceStub) Remove(ctx context.Context, commentID, requesterID uint) error {
	return s.removeFn(ctx, commentID, requesterID)
}

func TestCascade_PartialCleanupLeavesMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin, u := f.user(t, "admin"), f.user(t, "u")
	g := f.group(t, admin, "Club", u)

	for _, body := range []string{"one", "two", "three"} {
		_, err := f.comments.Create(ctx, u, body, g.ID)
		require.NoError(t, err)
	}

	storeDown := errors.New("store unavailable")
	calls := 0
	flaky := &commentServiceStub{
		CommentService: f.comments,
		removeFn: func(ctx context.Context, commentID, requesterID uint) error {
			calls++
			if calls == 2 {
				return storeDown
			}
			return f.comments.Remove(ctx, commentID, requesterID)
		},
	}
	cascade := services.NewCascadeService(f.groups, flaky, f.books, f.users)

	err := cascade.UserLeavesGroup(ctx, u, "Club")
	assert.ErrorIs(t, err, services.ErrPartialCleanup)
	assert.ErrorIs(t, err, storeDown)

	ok, err := f.groups.IsMember(ctx, g.ID, u)
	require.NoError(t, err)
	assert.True(t, ok)

	mine, err := f.comments.ListByUserInGroup(ctx, g.ID, u)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	// Retrying with a healthy store finishes the job.
	require.NoError(t, f.cascade.UserLeavesGroup(ctx, u, "Club"))
	mine, err = f.comments.ListByUserInGroup(ctx, g.ID, u)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestCascade_AlreadyDeletedCommentCountsAsRemoved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin, u := f.user(t, "admin"), f.user(t, "u")
	g := f.group(t, admin, "Club", u)

	c, err := f.comments.Create(ctx, u, "gone", g.ID)
	require.NoError(t, err)

	racing := &commentServiceStub{
		CommentService: f.comments,
		removeFn: func(ctx context.Context, commentID, requesterID uint) error {
			// Someone else deleted it between enumeration and removal.
			require.NoError(t, f.commentRepo.Delete(ctx, commentID))
			return f.comments.Remove(ctx, commentID, requesterID)
		},
	}
	cascade := services.NewCascadeService(f.groups, racing, nil, f.users)

	require.NoError(t, cascade.UserLeavesGroup(ctx, u, "Club"))
	_, err = f.commentRepo.GetByID(ctx, c.ID)
	assert.Error(t, err)
}

func TestCascade_ResumeGroupDeletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin, u := f.user(t, "admin"), f.user(t, "u")
	g := f.group(t, admin, "Club", u)

	for _, author := range []uint{admin, u, u} {
		_, err := f.comments.Create(ctx, author, "c", g.ID)
		require.NoError(t, err)
	}

	calls := 0
	crashy := &commentServiceStub{
		CommentService: f.comments,
		removeFn: func(ctx context.Context, commentID, requesterID uint) error {
			calls++
			if calls == 2 {
				return errors.New("connection reset")
			}
			return f.comments.Remove(ctx, commentID, requesterID)
		},
	}
	err := services.NewCascadeService(f.groups, crashy, f.books, f.users).DeleteGroupCascade(ctx, admin, "Club")
	require.ErrorIs(t, err, services.ErrPartialCleanup)

	// The group is still readable, so the interrupted deletion is detectable.
	_, err = f.groups.GetGroup(ctx, "Club")
	require.NoError(t, err)

	require.NoError(t, f.cascade.ResumeGroupDeletion(ctx, "Club"))

	var count int64
	require.NoError(t, f.db.Model(&models.Comment{}).Where("group_id = ?", g.ID).Count(&count).Error)
	assert.Zero(t, count)
	_, err = f.groups.GetGroup(ctx, "Club")
	assert.ErrorIs(t, err, services.ErrNotFound)
}

// lateCommenter posts one extra comment as author the first time the cascade
// removes a comment, the way a concurrent request would.
func lateCommenter(t *testing.T, f *fixture, author, groupID uint) (*commentServiceStub, func() uint) {
	var late uint
	stub := &commentServiceStub{
		CommentService: f.comments,
		removeFn: func(ctx context.Context, commentID, requesterID uint) error {
			if late == 0 {
				c, err := f.comments.Create(ctx, author, "late", groupID)
				require.NoError(t, err)
				late = c.ID
			}
			return f.comments.Remove(ctx, commentID, requesterID)
		},
	}
	return stub, func() uint { return late }
}

func TestCascade_DeleteGroupCatchesCommentPostedMidway(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin, u := f.user(t, "admin"), f.user(t, "u")
	g := f.group(t, admin, "Club", u)

	_, err := f.comments.Create(ctx, u, "early", g.ID)
	require.NoError(t, err)

	stub, late := lateCommenter(t, f, u, g.ID)
	require.NoError(t, services.NewCascadeService(f.groups, stub, f.books, f.users).DeleteGroupCascade(ctx, admin, "Club"))
	require.NotZero(t, late())

	_, err = f.commentRepo.GetByID(ctx, late())
	assert.Error(t, err)
	_, err = f.groups.GetGroup(ctx, "Club")
	assert.ErrorIs(t, err, services.ErrNotFound)
	dangling, err := f.commentRepo.FindDangling(ctx)
	require.NoError(t, err)
	assert.Empty(t, dangling)
}

func TestCascade_LeaveCatchesCommentPostedMidway(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin, u := f.user(t, "admin"), f.user(t, "u")
	g := f.group(t, admin, "Club", u)

	_, err := f.comments.Create(ctx, u, "early", g.ID)
	require.NoError(t, err)

	stub, late := lateCommenter(t, f, u, g.ID)
	require.NoError(t, services.NewCascadeService(f.groups, stub, f.books, f.users).UserLeavesGroup(ctx, u, "Club"))
	require.NotZero(t, late())

	mine, err := f.comments.ListByUserInGroup(ctx, g.ID, u)
	require.NoError(t, err)
	assert.Empty(t, mine)
	ok, err := f.groups.IsMember(ctx, g.ID, u)
	require.NoError(t, err)
	assert.False(t, ok)

	// 离开之后不能再发表评论
	_, err = f.comments.Create(ctx, u, "too late", g.ID)
	assert.ErrorIs(t, err, services.ErrNotMember)
}

func TestCascade_GivesUpWhenCommentsKeepArriving(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin, u := f.user(t, "admin"), f.user(t, "u")
	g := f.group(t, admin, "Club", u)

	_, err := f.comments.Create(ctx, u, "early", g.ID)
	require.NoError(t, err)

	noisy := &commentServiceStub{
		CommentService: f.comments,
		removeFn: func(ctx context.Context, commentID, requesterID uint) error {
			_, err := f.comments.Create(ctx, u, "again", g.ID)
			require.NoError(t, err)
			return f.comments.Remove(ctx, commentID, requesterID)
		},
	}
	err = services.NewCascadeService(f.groups, noisy, f.books, f.users).UserLeavesGroup(ctx, u, "Club")
	assert.ErrorIs(t, err, services.ErrPartialCleanup)

	// 成员关系保留，剩下的评论仍然有效
	ok, err := f.groups.IsMember(ctx, g.ID, u)
	require.NoError(t, err)
	assert.True(t, ok)
	dangling, err := f.commentRepo.FindDangling(ctx)
	require.NoError(t, err)
	assert.Empty(t, dangling)
}

func TestCascade_DeleteAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin, u, v := f.user(t, "admin"), f.user(t, "u"), f.user(t, "v")
	g := f.group(t, admin, "Club", u)
	f.group(t, v, "Circle", u)

	_, err := f.comments.Create(ctx, u, "mine", g.ID)
	require.NoError(t, err)
	kept, err := f.comments.Create(ctx, admin, "admin's", g.ID)
	require.NoError(t, err)
	_, err = f.friends.SendRequest(ctx, u, admin)
	require.NoError(t, err)
	_, err = f.friends.SendRequest(ctx, v, u)
	require.NoError(t, err)
	require.NoError(t, f.friends.AcceptRequest(ctx, v, u))
	_, err = f.lists.NewList(ctx, u, "summer")
	require.NoError(t, err)
	posts := services.NewPostService(storage.NewGormPostRepository(f.db))
	_, err = posts.Create(ctx, u, "hello")
	require.NoError(t, err)

	// 群主必须先转让或删除群组
	assert.ErrorIs(t, f.cascade.DeleteAccount(ctx, admin), services.ErrAdminCannotLeave)
	_, err = f.users.GetByID(ctx, admin)
	require.NoError(t, err)

	require.NoError(t, f.cascade.DeleteAccount(ctx, u))

	_, err = f.users.GetByID(ctx, u)
	assert.True(t, storage.IsNotFound(err))
	for _, name := range []string{"Club", "Circle"} {
		grp, err := f.groups.GetGroup(ctx, name)
		require.NoError(t, err)
		ok, err := f.groups.IsMember(ctx, grp.ID, u)
		require.NoError(t, err)
		assert.False(t, ok, name)
		assert.Equal(t, 1, grp.MemberCount, name)
	}
	all, err := f.comments.ListByGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{kept.ID}, commentIDs(all))

	friends, err := f.friends.ListFriends(ctx, v)
	require.NoError(t, err)
	assert.Empty(t, friends)
	incoming, err := f.friends.ListIncomingRequests(ctx, admin)
	require.NoError(t, err)
	assert.Empty(t, incoming)
	lists, err := f.lists.ListUserLists(ctx, u)
	require.NoError(t, err)
	assert.Empty(t, lists)
	left, err := posts.List(ctx, u, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, left)

	assert.ErrorIs(t, f.cascade.DeleteAccount(ctx, u), services.ErrNotFound)
}
