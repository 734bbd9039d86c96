package storage

import (
	"context"

	"gorm.io/gorm"

	"bookclub/internal/models"
)

// BookRepository defines the interface for book catalog data operations.
type BookRepository interface {
	Create(ctx context.Context, book *models.Book) error
	GetByID(ctx context.Context, id uint) (*models.Book, error)
	GetByTitle(ctx context.Context, title string) (*models.Book, error)
	List(ctx context.Context) ([]models.Book, error)
	ListByIDs(ctx context.Context, ids []uint) ([]models.Book, error)
	Count(ctx context.Context) (int64, error)
	// TitleAt returns the title of the book at offset in id order.
	TitleAt(ctx context.Context, offset int) (string, error)

	AddGroup(ctx context.Context, link *models.BookGroup) error
	RemoveGroup(ctx context.Context, bookID, groupID uint) error
	// DetachGroup deletes every book link of a group and returns how many were removed.
	DetachGroup(ctx context.Context, groupID uint) (int64, error)
	CountGroupLinks(ctx context.Context, groupID uint) (int64, error)
}

type gormBookRepository struct {
	db *gorm.DB
}

// NewGormBookRepository creates a new GORM-based BookRepository.
func NewGormBookRepository(db *gorm.DB) BookRepository {
	return &gormBookRepository{db: db}
}

// Create inserts a book. A title collision is returned as gorm.ErrDuplicatedKey.
func (r *gormBookRepository) Create(ctx context.Context, book *models.Book) error {
	return r.db.WithContext(ctx).Omit("Groups").Create(book).Error
}

func (r *gormBookRepository) GetByID(ctx context.Context, id uint) (*models.Book, error) {
	var book models.Book
	err := r.db.WithContext(ctx).Preload("Groups").First(&book, id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *gormBookRepository) GetByTitle(ctx context.Context, title string) (*models.Book, error) {
	var book models.Book
	err := r.db.WithContext(ctx).Preload("Groups").Where("title = ?", title).First(&book).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *gormBookRepository) List(ctx context.Context) ([]models.Book, error) {
	var books []models.Book
	err := r.db.WithContext(ctx).Order("title ASC").Find(&books).Error
	return books, err
}

func (r *gormBookRepository) ListByIDs(ctx context.Context, ids []uint) ([]models.Book, error) {
	var books []models.Book
	if len(ids) == 0 {
		return books, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("title ASC").Find(&books).Error
	return books, err
}

func (r *gormBookRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Book{}).Count(&count).Error
	return count, err
}

func (r *gormBookRepository) TitleAt(ctx context.Context, offset int) (string, error) {
	var book models.Book
	err := r.db.WithContext(ctx).Select("id", "title").Order("id ASC").Offset(offset).Limit(1).Take(&book).Error
	if err != nil {
		return "", err
	}
	return book.Title, nil
}

// AddGroup links a book to a group. An existing link is gorm.ErrDuplicatedKey.
func (r *gormBookRepository) AddGroup(ctx context.Context, link *models.BookGroup) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *gormBookRepository) RemoveGroup(ctx context.Context, bookID, groupID uint) error {
	result := r.db.WithContext(ctx).Where("book_id = ? AND group_id = ?", bookID, groupID).Delete(&models.BookGroup{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *gormBookRepository) DetachGroup(ctx context.Context, groupID uint) (int64, error) {
	result := r.db.WithContext(ctx).Where("group_id = ?", groupID).Delete(&models.BookGroup{})
	return result.RowsAffected, result.Error
}

func (r *gormBookRepository) CountGroupLinks(ctx context.Context, groupID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.BookGroup{}).Where("group_id = ?", groupID).Count(&count).Error
	return count, err
}
