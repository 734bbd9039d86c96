package services_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"bookclub/internal/models"
	"bookclub/internal/services"
	"bookclub/internal/storage"
	"bookclub/internal/storage/storagetest"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []services.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event services.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []services.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]services.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	db          *gorm.DB
	events      *recordingPublisher
	users       storage.UserRepository
	requests    storage.FriendRequestRepository
	friendships storage.FriendshipRepository
	groupRepo   storage.GroupRepository
	commentRepo storage.CommentRepository
	bookRepo    storage.BookRepository

	friends  services.FriendService
	groups   services.GroupService
	comments services.CommentService
	books    services.BookService
	lists    services.ReadingListService
	cascade  services.CascadeService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := storagetest.OpenDB(t)

	f := &fixture{
		db:          db,
		events:      &recordingPublisher{},
		users:       storage.NewGormUserRepository(db),
		requests:    storage.NewGormFriendRequestRepository(db),
		friendships: storage.NewGormFriendshipRepository(db),
		groupRepo:   storage.NewGormGroupRepository(db),
		commentRepo: storage.NewGormCommentRepository(db),
		bookRepo:    storage.NewGormBookRepository(db),
	}
	f.friends = services.NewFriendService(db, f.users, f.requests, f.friendships, f.events)
	f.groups = services.NewGroupService(db, f.groupRepo, f.events)
	f.comments = services.NewCommentService(f.commentRepo, f.groupRepo)
	f.books = services.NewBookService(f.bookRepo, f.groups, nil)
	f.lists = services.NewReadingListService(storage.NewGormReadingListRepository(db), f.bookRepo)
	f.cascade = services.NewCascadeService(f.groups, f.comments, f.books, f.users)
	return f
}

func (f *fixture) user(t *testing.T, name string) uint {
	t.Helper()
	u := &models.User{Username: name, PasswordHash: "x", Email: fmt.Sprintf("%s@example.com", name)}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u.ID
}

func (f *fixture) group(t *testing.T, admin uint, name string, members ...uint) *models.Group {
	t.Helper()
	ctx := context.Background()
	g, err := f.groups.CreateGroup(ctx, admin, name, "")
	require.NoError(t, err)
	for _, m := range members {
		_, err := f.groups.Join(ctx, m, name)
		require.NoError(t, err)
	}
	return g
}

func commentIDs(comments []models.Comment) []uint {
	ids := make([]uint, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.ID)
	}
	return ids
}
