package storage

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bookclub/internal/models"
)

// CommentRepository defines the interface for comment data operations.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	// CreateAsMember inserts comment only while its author belongs to its group,
	// otherwise ErrNotGroupMember.
	CreateAsMember(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByGroup(ctx context.Context, groupID uint) ([]models.Comment, error)
	ListByUserInGroup(ctx context.Context, groupID, userID uint) ([]models.Comment, error)
	// Delete removes one comment and detaches its direct replies, which become
	// root comments. A missing comment is reported as gorm.ErrRecordNotFound.
	Delete(ctx context.Context, id uint) error
	// FindDangling returns comments whose group or parent row no longer exists.
	FindDangling(ctx context.Context) ([]models.Comment, error)
	// RepairDangling deletes comments of missing groups and turns comments with a
	// missing parent into root comments, in one transaction.
	RepairDangling(ctx context.Context) (deleted, detached int64, err error)
}

type gormCommentRepository struct {
	db *gorm.DB
}

// NewGormCommentRepository creates a new GORM-based CommentRepository.
func NewGormCommentRepository(db *gorm.DB) CommentRepository {
	return &gormCommentRepository{db: db}
}

func (r *gormCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// 成员行以共享锁读取，并发的 RemoveMember 或 DeleteGroup 会等待本事务结束后再统计评论。
func (r *gormCommentRepository) CreateAsMember(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var member models.GroupMember
		err := tx.Clauses(clause.Locking{Strength: clause.LockingStrengthShare}).
			Where("group_id = ? AND user_id = ?", comment.GroupID, comment.AuthorID).
			First(&member).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotGroupMember
		}
		if err != nil {
			return err
		}
		return tx.Create(comment).Error
	})
}

func (r *gormCommentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.WithContext(ctx).First(&comment, id).Error
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *gormCommentRepository) ListByGroup(ctx context.Context, groupID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	return comments, err
}

func (r *gormCommentRepository) ListByUserInGroup(ctx context.Context, groupID, userID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND author_id = ?", groupID, userID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	return comments, err
}

func (r *gormCommentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Comment{}).
			Where("parent_id = ?", id).
			Update("parent_id", nil).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Comment{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *gormCommentRepository) FindDangling(ctx context.Context) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.WithContext(ctx).
		Where("group_id NOT IN (?) OR (parent_id IS NOT NULL AND parent_id NOT IN (?))",
			r.db.Model(&models.Group{}).Select("id"),
			r.db.Model(&models.Comment{}).Select("id")).
		Order("id ASC").
		Find(&comments).Error
	return comments, err
}

func (r *gormCommentRepository) RepairDangling(ctx context.Context) (deleted, detached int64, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("group_id NOT IN (?)", tx.Model(&models.Group{}).Select("id")).
			Delete(&models.Comment{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected

		result = tx.Model(&models.Comment{}).
			Where("parent_id IS NOT NULL AND parent_id NOT IN (?)", tx.Model(&models.Comment{}).Select("id")).
			Update("parent_id", nil)
		if result.Error != nil {
			return result.Error
		}
		detached = result.RowsAffected
		return nil
	})
	return deleted, detached, err
}
