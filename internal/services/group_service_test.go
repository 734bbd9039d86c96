package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookclub/internal/models"
	"bookclub/internal/services"
	"bookclub/internal/storage"
)

func TestGroupService_DuplicateName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, v := f.user(t, "u"), f.user(t, "v")

	_, err := f.groups.CreateGroup(ctx, u, "Bookworms", "")
	require.NoError(t, err)

	_, err = f.groups.CreateGroup(ctx, v, "Bookworms", "")
	assert.ErrorIs(t, err, services.ErrDuplicateName)

	_, err = f.groups.CreateGroup(ctx, u, "Bookworms", "")
	assert.ErrorIs(t, err, services.ErrDuplicateName)

	_, err = f.groups.CreateGroup(ctx, u, "  ", "")
	assert.ErrorIs(t, err, services.ErrInvalidRequest)
}

func TestGroupService_CreatorIsAdminAndSoleMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "u")

	g, err := f.groups.CreateGroup(ctx, u, "Club", "weekly")
	require.NoError(t, err)
	assert.Equal(t, u, g.AdminID)

	members, err := f.groups.ListMembers(ctx, "Club")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, u, members[0].UserID)
	assert.Equal(t, models.AdminRole, members[0].Role)
}

func TestGroupService_JoinAndLeave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin, other := f.user(t, "admin"), f.user(t, "other")
	f.group(t, admin, "Club")

	_, err := f.groups.Join(ctx, other, "Nowhere")
	assert.ErrorIs(t, err, services.ErrNotFound)

	_, err = f.groups.Join(ctx, other, "Club")
	require.NoError(t, err)
	_, err = f.groups.Join(ctx, other, "Club")
	assert.ErrorIs(t, err, services.ErrAlreadyMember)

	g, err := f.groups.GetGroup(ctx, "Club")
	require.NoError(t, err)
	assert.Equal(t, 2, g.MemberCount)

	require.NoError(t, f.groups.Leave(ctx, other, "Club"))
	assert.ErrorIs(t, f.groups.Leave(ctx, other, "Club"), services.ErrNotMember)

	g, err = f.groups.GetGroup(ctx, "Club")
	require.NoError(t, err)
	assert.Equal(t, 1, g.MemberCount)
}

func TestGroupService_AdminCannotLeaveUntilTransfer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin, other := f.user(t, "admin"), f.user(t, "other")
	f.group(t, admin, "Club", other)

	assert.ErrorIs(t, f.groups.Leave(ctx, admin, "Club"), services.ErrAdminCannotLeave)

	_, err := f.groups.ChangeAdmin(ctx, other, admin, "Club")
	assert.ErrorIs(t, err, services.ErrNotAllowed)

	g, err := f.groups.ChangeAdmin(ctx, admin, other, "Club")
	require.NoError(t, err)
	assert.Equal(t, other, g.AdminID)

	require.NoError(t, f.groups.Leave(ctx, admin, "Club"))

	members, err := f.groups.ListMembers(ctx, "Club")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, other, members[0].UserID)
	assert.Equal(t, models.AdminRole, members[0].Role)
}

func TestGroupService_ChangeAdminRequiresMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin, outsider := f.user(t, "admin"), f.user(t, "outsider")
	f.group(t, admin, "Club")

	_, err := f.groups.ChangeAdmin(ctx, admin, outsider, "Club")
	assert.ErrorIs(t, err, services.ErrNotMember)

	g, err := f.groups.GetGroup(ctx, "Club")
	require.NoError(t, err)
	assert.Equal(t, admin, g.AdminID)
}

func TestGroupService_RemoveOtherUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin, a, b := f.user(t, "admin"), f.user(t, "a"), f.user(t, "b")
	g := f.group(t, admin, "Club", a)

	assert.ErrorIs(t, f.groups.RemoveOtherUser(ctx, a, admin, "Club"), services.ErrNotAllowed)
	assert.ErrorIs(t, f.groups.RemoveOtherUser(ctx, admin, admin, "Club"), services.ErrCannotRemoveSelf)
	assert.ErrorIs(t, f.groups.RemoveOtherUser(ctx, admin, b, "Club"), services.ErrNotMember)

	require.NoError(t, f.groups.RemoveOtherUser(ctx, admin, a, "Club"))
	ok, err := f.groups.IsMember(ctx, g.ID, a)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGroupService_Rename(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin, other := f.user(t, "admin"), f.user(t, "other")
	f.group(t, admin, "Club", other)
	f.group(t, other, "Circle")

	_, err := f.groups.Rename(ctx, other, "Club", "Society")
	assert.ErrorIs(t, err, services.ErrNotAllowed)

	_, err = f.groups.Rename(ctx, admin, "Club", "Circle")
	assert.ErrorIs(t, err, services.ErrDuplicateName)

	g, err := f.groups.Rename(ctx, admin, "Club", "Society")
	require.NoError(t, err)
	assert.Equal(t, "Society", g.Name)

	_, err = f.groups.GetGroup(ctx, "Club")
	assert.ErrorIs(t, err, services.ErrNotFound)

	// The old name is free again.
	_, err = f.groups.CreateGroup(ctx, other, "Club", "")
	require.NoError(t, err)
}

func TestGroupService_DeleteGroupAdminOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin, other := f.user(t, "admin"), f.user(t, "other")
	f.group(t, admin, "Club", other)

	assert.ErrorIs(t, f.groups.DeleteGroup(ctx, other, "Club"), services.ErrNotAllowed)
	require.NoError(t, f.groups.DeleteGroup(ctx, admin, "Club"))
	assert.ErrorIs(t, f.groups.DeleteGroup(ctx, admin, "Club"), services.ErrNotFound)

	groups, err := f.groups.ListUserGroups(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestGroupService_MembershipChangesRefusedWhileCommentsRemain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin, a, b := f.user(t, "admin"), f.user(t, "a"), f.user(t, "b")
	g := f.group(t, admin, "Club", a, b)

	_, err := f.comments.Create(ctx, a, "a's", g.ID)
	require.NoError(t, err)
	_, err = f.comments.Create(ctx, b, "b's", g.ID)
	require.NoError(t, err)

	err = f.groups.Leave(ctx, a, "Club")
	assert.ErrorIs(t, err, services.ErrPartialCleanup)
	assert.ErrorIs(t, err, storage.ErrMemberHasComments)
	err = f.groups.RemoveOtherUser(ctx, admin, b, "Club")
	assert.ErrorIs(t, err, services.ErrPartialCleanup)
	err = f.groups.DeleteGroup(ctx, admin, "Club")
	assert.ErrorIs(t, err, services.ErrPartialCleanup)
	assert.ErrorIs(t, err, storage.ErrGroupHasComments)

	// 什么都没有改变
	g, err = f.groups.GetGroup(ctx, "Club")
	require.NoError(t, err)
	assert.Equal(t, 3, g.MemberCount)
	members, err := f.groups.ListMembers(ctx, "Club")
	require.NoError(t, err)
	assert.Len(t, members, 3)
	all, err := f.comments.ListByGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
