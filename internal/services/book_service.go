package services

import (
	"context"
	"log"
	"math/rand"
	"strings"

	"bookclub/internal/models"
	"bookclub/internal/storage"
)

const maxReview = 5

// RecommendationCache stores sampled title lists keyed by their requested size.
type RecommendationCache interface {
	Get(ctx context.Context, n int) (titles []string, ok bool, err error)
	Set(ctx context.Context, n int, titles []string) error
	Invalidate(ctx context.Context) error
}

// BookService manages the shared catalog and the books groups are reading.
type BookService interface {
	NewBook(ctx context.Context, title, author, summary string, review int) (*models.Book, error)
	GetBook(ctx context.Context, title string) (*models.Book, error)
	ListBooks(ctx context.Context) ([]models.Book, error)
	AddGroup(ctx context.Context, requesterID uint, title, groupName string) error
	RemoveGroup(ctx context.Context, requesterID uint, title, groupName string) error
	// Recommend samples up to n distinct titles. Fewer are returned when the
	// catalog is smaller than n.
	Recommend(ctx context.Context, n int) ([]string, error)
	DetachGroup(ctx context.Context, groupID uint) error
}

type bookService struct {
	bookRepo storage.BookRepository
	groups   GroupService
	cache    RecommendationCache
	intN     func(n int) int
}

// NewBookService creates a new BookService. cache may be nil.
func NewBookService(bookRepo storage.BookRepository, groups GroupService, cache RecommendationCache) BookService {
	return &bookService{bookRepo: bookRepo, groups: groups, cache: cache, intN: rand.Intn}
}

func (s *bookService) NewBook(ctx context.Context, title, author, summary string, review int) (*models.Book, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, newError(KindInvalidRequest, "书名不能为空")
	}
	if review < 0 || review > maxReview {
		return nil, newError(KindInvalidRequest, "评分必须在 0 到 5 之间")
	}

	if _, err := s.bookRepo.GetByTitle(ctx, title); err == nil {
		return nil, newError(KindDuplicateName, "书名已存在")
	} else if !storage.IsNotFound(err) {
		return nil, storeError(err, "", "", "检查书名失败")
	}

	book := &models.Book{Title: title, Author: author, Summary: summary, Review: review}
	if err := s.bookRepo.Create(ctx, book); err != nil {
		return nil, storeError(err, "", KindDuplicateName, "保存书籍失败")
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			log.Printf("Error invalidating recommendation cache: %v", err)
		}
	}
	return book, nil
}

func (s *bookService) GetBook(ctx context.Context, title string) (*models.Book, error) {
	book, err := s.bookRepo.GetByTitle(ctx, title)
	if err != nil {
		return nil, storeError(err, "书籍不存在", "", "获取书籍失败")
	}
	return book, nil
}

func (s *bookService) ListBooks(ctx context.Context) ([]models.Book, error) {
	books, err := s.bookRepo.List(ctx)
	if err != nil {
		return nil, storeError(err, "", "", "获取书籍列表失败")
	}
	return books, nil
}

// AddGroup marks a book as read by a group. Only the group's admin may do so.
func (s *bookService) AddGroup(ctx context.Context, requesterID uint, title, groupName string) error {
	book, group, err := s.bookAndAdminGroup(ctx, requesterID, title, groupName)
	if err != nil {
		return err
	}
	if err := s.bookRepo.AddGroup(ctx, &models.BookGroup{BookID: book.ID, GroupID: group.ID}); err != nil {
		return storeError(err, "", KindAlreadyMember, "关联书籍与群组失败")
	}
	return nil
}

func (s *bookService) RemoveGroup(ctx context.Context, requesterID uint, title, groupName string) error {
	book, group, err := s.bookAndAdminGroup(ctx, requesterID, title, groupName)
	if err != nil {
		return err
	}
	if err := s.bookRepo.RemoveGroup(ctx, book.ID, group.ID); err != nil {
		return storeError(err, "书籍未关联该群组", "", "解除书籍与群组关联失败")
	}
	return nil
}

func (s *bookService) bookAndAdminGroup(ctx context.Context, requesterID uint, title, groupName string) (*models.Book, *models.Group, error) {
	group, err := s.groups.GetGroup(ctx, groupName)
	if err != nil {
		return nil, nil, err
	}
	if group.AdminID != requesterID {
		return nil, nil, newError(KindNotAllowed, "只有群组管理员可以管理群组书籍")
	}
	book, err := s.GetBook(ctx, title)
	if err != nil {
		return nil, nil, err
	}
	return book, group, nil
}

func (s *bookService) Recommend(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		return []string{}, nil
	}

	if s.cache != nil {
		titles, ok, err := s.cache.Get(ctx, n)
		if err != nil {
			log.Printf("Error reading recommendation cache: %v", err)
		} else if ok {
			return titles, nil
		}
	}

	count, err := s.bookRepo.Count(ctx)
	if err != nil {
		return nil, storeError(err, "", "", "统计书籍数量失败")
	}
	k := n
	if int64(k) > count {
		k = int(count)
	}

	// Partial Fisher-Yates over offsets; only the swapped positions are stored.
	swapped := make(map[int]int, k)
	at := func(i int) int {
		if v, ok := swapped[i]; ok {
			return v
		}
		return i
	}
	titles := make([]string, 0, k)
	for i := 0; i < k; i++ {
		j := i + s.intN(int(count)-i)
		vi, vj := at(i), at(j)
		swapped[i], swapped[j] = vj, vi

		title, err := s.bookRepo.TitleAt(ctx, vj)
		if err != nil {
			return nil, storeError(err, "书籍不存在", "", "获取推荐书籍失败")
		}
		titles = append(titles, title)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, n, titles); err != nil {
			log.Printf("Error writing recommendation cache: %v", err)
		}
	}
	return titles, nil
}

// DetachGroup removes every book link of a deleted group.
func (s *bookService) DetachGroup(ctx context.Context, groupID uint) error {
	removed, err := s.bookRepo.DetachGroup(ctx, groupID)
	if err != nil {
		return storeError(err, "", "", "解除书籍与群组关联失败")
	}
	if removed > 0 {
		log.Printf("Detached %d book(s) from group %d", removed, groupID)
	}
	return nil
}
