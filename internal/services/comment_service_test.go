package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookclub/internal/services"
)

func TestCommentService_CreateRequiresMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin, outsider := f.user(t, "admin"), f.user(t, "outsider")
	g := f.group(t, admin, "Club")

	_, err := f.comments.Create(ctx, outsider, "hello", g.ID)
	assert.ErrorIs(t, err, services.ErrNotMember)

	_, err = f.comments.Create(ctx, admin, "hello", g.ID+100)
	assert.ErrorIs(t, err, services.ErrNotFound)

	_, err = f.comments.Create(ctx, admin, "   ", g.ID)
	assert.ErrorIs(t, err, services.ErrInvalidRequest)

	c, err := f.comments.Create(ctx, admin, "hello", g.ID)
	require.NoError(t, err)
	assert.True(t, c.IsRoot())
}

func TestCommentService_ReplyAcrossGroupsIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "u")
	club := f.group(t, u, "Club")
	circle := f.group(t, u, "Circle")

	parent, err := f.comments.Create(ctx, u, "in club", club.ID)
	require.NoError(t, err)

	_, err = f.comments.Reply(ctx, u, "wrong group", parent.ID, circle.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)

	_, err = f.comments.Reply(ctx, u, "missing", parent.ID+100, club.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)

	reply, err := f.comments.Reply(ctx, u, "right group", parent.ID, club.ID)
	require.NoError(t, err)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, parent.ID, *reply.ParentID)

	inCircle, err := f.comments.ListByGroup(ctx, circle.ID)
	require.NoError(t, err)
	assert.Empty(t, inCircle)
}

func TestCommentService_RemovePermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin, author, other := f.user(t, "admin"), f.user(t, "author"), f.user(t, "other")
	g := f.group(t, admin, "Club", author, other)

	first, err := f.comments.Create(ctx, author, "one", g.ID)
	require.NoError(t, err)
	second, err := f.comments.Create(ctx, author, "two", g.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, f.comments.Remove(ctx, first.ID, other), services.ErrNotAllowed)

	require.NoError(t, f.comments.Remove(ctx, first.ID, author))
	require.NoError(t, f.comments.Remove(ctx, second.ID, admin))
	assert.ErrorIs(t, f.comments.Remove(ctx, second.ID, admin), services.ErrNotFound)
}

func TestCommentService_RemoveDetachesReplies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, v := f.user(t, "u"), f.user(t, "v")
	g := f.group(t, u, "Club", v)

	parent, err := f.comments.Create(ctx, v, "root", g.ID)
	require.NoError(t, err)
	reply, err := f.comments.Reply(ctx, u, "reply", parent.ID, g.ID)
	require.NoError(t, err)

	require.NoError(t, f.comments.Remove(ctx, parent.ID, v))

	remaining, err := f.comments.ListByGroup(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, reply.ID, remaining[0].ID)
	assert.Nil(t, remaining[0].ParentID)
}
