package storage

import (
	"context"

	"gorm.io/gorm"

	"bookclub/internal/models"
)

// ReadingListRepository defines the interface for reading list data operations.
type ReadingListRepository interface {
	Create(ctx context.Context, list *models.ReadingList) error
	GetByOwnerAndName(ctx context.Context, ownerID uint, name string) (*models.ReadingList, error)
	ListByOwner(ctx context.Context, ownerID uint) ([]models.ReadingList, error)
	// Delete removes the list and its book rows in one transaction.
	Delete(ctx context.Context, listID uint) error

	AddBook(ctx context.Context, listID, bookID uint) error
	RemoveBook(ctx context.Context, listID, bookID uint) error
	BookIDs(ctx context.Context, listID uint) ([]uint, error)
}

type gormReadingListRepository struct {
	db *gorm.DB
}

// NewGormReadingListRepository creates a new GORM-based ReadingListRepository.
func NewGormReadingListRepository(db *gorm.DB) ReadingListRepository {
	return &gormReadingListRepository{db: db}
}

func (r *gormReadingListRepository) Create(ctx context.Context, list *models.ReadingList) error {
	return r.db.WithContext(ctx).Create(list).Error
}

func (r *gormReadingListRepository) GetByOwnerAndName(ctx context.Context, ownerID uint, name string) (*models.ReadingList, error) {
	var list models.ReadingList
	err := r.db.WithContext(ctx).Where("owner_id = ? AND name = ?", ownerID, name).First(&list).Error
	if err != nil {
		return nil, err
	}
	return &list, nil
}

func (r *gormReadingListRepository) ListByOwner(ctx context.Context, ownerID uint) ([]models.ReadingList, error) {
	var lists []models.ReadingList
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("name ASC").Find(&lists).Error
	return lists, err
}

func (r *gormReadingListRepository) Delete(ctx context.Context, listID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("reading_list_id = ?", listID).Delete(&models.ReadingListBook{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.ReadingList{}, listID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// AddBook inserts the join row; a book already on the list is gorm.ErrDuplicatedKey.
func (r *gormReadingListRepository) AddBook(ctx context.Context, listID, bookID uint) error {
	return r.db.WithContext(ctx).Create(&models.ReadingListBook{ReadingListID: listID, BookID: bookID}).Error
}

func (r *gormReadingListRepository) RemoveBook(ctx context.Context, listID, bookID uint) error {
	result := r.db.WithContext(ctx).
		Where("reading_list_id = ? AND book_id = ?", listID, bookID).
		Delete(&models.ReadingListBook{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *gormReadingListRepository) BookIDs(ctx context.Context, listID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.ReadingListBook{}).
		Where("reading_list_id = ?", listID).
		Pluck("book_id", &ids).Error
	return ids, err
}
