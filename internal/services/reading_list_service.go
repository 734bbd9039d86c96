package services

import (
	"context"
	"strings"

	"bookclub/internal/models"
	"bookclub/internal/storage"
)

// ReadingListService manages per-user named lists of catalog books.
type ReadingListService interface {
	NewList(ctx context.Context, ownerID uint, name string) (*models.ReadingList, error)
	GetList(ctx context.Context, ownerID uint, name string) (*models.ReadingList, error)
	AddBook(ctx context.Context, ownerID uint, name, title string) error
	RemoveBook(ctx context.Context, ownerID uint, name, title string) error
	DeleteList(ctx context.Context, ownerID uint, name string) error
	ListUserLists(ctx context.Context, ownerID uint) ([]models.ReadingList, error)
}

type readingListService struct {
	listRepo storage.ReadingListRepository
	bookRepo storage.BookRepository
}

// NewReadingListService creates a new ReadingListService.
func NewReadingListService(listRepo storage.ReadingListRepository, bookRepo storage.BookRepository) ReadingListService {
	return &readingListService{listRepo: listRepo, bookRepo: bookRepo}
}

func (s *readingListService) NewList(ctx context.Context, ownerID uint, name string) (*models.ReadingList, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, newError(KindInvalidRequest, "书单名称不能为空")
	}

	if _, err := s.listRepo.GetByOwnerAndName(ctx, ownerID, name); err == nil {
		return nil, newError(KindDuplicateName, "书单名称已存在")
	} else if !storage.IsNotFound(err) {
		return nil, storeError(err, "", "", "检查书单名称失败")
	}

	list := &models.ReadingList{OwnerID: ownerID, Name: name, Books: []models.Book{}}
	if err := s.listRepo.Create(ctx, list); err != nil {
		return nil, storeError(err, "", KindDuplicateName, "创建书单失败")
	}
	return list, nil
}

// GetList returns the list with its books loaded.
func (s *readingListService) GetList(ctx context.Context, ownerID uint, name string) (*models.ReadingList, error) {
	list, err := s.listRepo.GetByOwnerAndName(ctx, ownerID, name)
	if err != nil {
		return nil, storeError(err, "书单不存在", "", "获取书单失败")
	}
	if err := s.loadBooks(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *readingListService) AddBook(ctx context.Context, ownerID uint, name, title string) error {
	list, book, err := s.listAndBook(ctx, ownerID, name, title)
	if err != nil {
		return err
	}
	if err := s.listRepo.AddBook(ctx, list.ID, book.ID); err != nil {
		return storeError(err, "", KindAlreadyMember, "添加书籍到书单失败")
	}
	return nil
}

func (s *readingListService) RemoveBook(ctx context.Context, ownerID uint, name, title string) error {
	list, book, err := s.listAndBook(ctx, ownerID, name, title)
	if err != nil {
		return err
	}
	if err := s.listRepo.RemoveBook(ctx, list.ID, book.ID); err != nil {
		return storeError(err, "书单中没有这本书", "", "从书单移除书籍失败")
	}
	return nil
}

func (s *readingListService) DeleteList(ctx context.Context, ownerID uint, name string) error {
	list, err := s.listRepo.GetByOwnerAndName(ctx, ownerID, name)
	if err != nil {
		return storeError(err, "书单不存在", "", "获取书单失败")
	}
	if err := s.listRepo.Delete(ctx, list.ID); err != nil {
		return storeError(err, "书单不存在", "", "删除书单失败")
	}
	return nil
}

func (s *readingListService) ListUserLists(ctx context.Context, ownerID uint) ([]models.ReadingList, error) {
	lists, err := s.listRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, storeError(err, "", "", "获取书单列表失败")
	}
	for i := range lists {
		if err := s.loadBooks(ctx, &lists[i]); err != nil {
			return nil, err
		}
	}
	return lists, nil
}

func (s *readingListService) listAndBook(ctx context.Context, ownerID uint, name, title string) (*models.ReadingList, *models.Book, error) {
	list, err := s.listRepo.GetByOwnerAndName(ctx, ownerID, name)
	if err != nil {
		return nil, nil, storeError(err, "书单不存在", "", "获取书单失败")
	}
	book, err := s.bookRepo.GetByTitle(ctx, title)
	if err != nil {
		return nil, nil, storeError(err, "书籍不存在", "", "获取书籍失败")
	}
	return list, book, nil
}

func (s *readingListService) loadBooks(ctx context.Context, list *models.ReadingList) error {
	ids, err := s.listRepo.BookIDs(ctx, list.ID)
	if err != nil {
		return storeError(err, "", "", "获取书单书籍失败")
	}
	books, err := s.bookRepo.ListByIDs(ctx, ids)
	if err != nil {
		return storeError(err, "", "", "获取书单书籍失败")
	}
	list.Books = books
	return nil
}
