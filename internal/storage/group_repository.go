package storage

import (
	"context"

	"gorm.io/gorm"

	"bookclub/internal/models"
)

// GroupRepository 定义了群组数据操作的接口。
type GroupRepository interface {
	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroupByID(ctx context.Context, id uint) (*models.Group, error)
	GetGroupByName(ctx context.Context, name string) (*models.Group, error)
	UpdateGroup(ctx context.Context, group *models.Group) error
	DeleteGroup(ctx context.Context, id uint) error
	ListGroups(ctx context.Context, limit int, offset int) ([]*models.Group, error)
	SearchGroups(ctx context.Context, query string, limit int, offset int) ([]*models.Group, error)

	AddMember(ctx context.Context, member *models.GroupMember) error
	GetMember(ctx context.Context, groupID uint, userID uint) (*models.GroupMember, error)
	UpdateMember(ctx context.Context, member *models.GroupMember) error
	RemoveMember(ctx context.Context, groupID uint, userID uint) error
	GetGroupMembers(ctx context.Context, groupID uint, limit int, offset int) ([]*models.GroupMember, error)
	GetUserGroups(ctx context.Context, userID uint, limit int, offset int) ([]*models.Group, error)
}

// gormGroupRepository 使用 GORM 实现 GroupRepository。
type gormGroupRepository struct {
	db *gorm.DB
}

// NewGormGroupRepository 创建一个新的基于 GORM 的 GroupRepository。
func NewGormGroupRepository(db *gorm.DB) GroupRepository {
	return &gormGroupRepository{db: db}
}

// CreateGroup 创建一个新的群组。名称冲突返回 gorm.ErrDuplicatedKey。
func (r *gormGroupRepository) CreateGroup(ctx context.Context, group *models.Group) error {
	return r.db.WithContext(ctx).Omit("Members").Create(group).Error
}

// GetGroupByID 通过ID检索群组。
func (r *gormGroupRepository) GetGroupByID(ctx context.Context, id uint) (*models.Group, error) {
	var group models.Group
	err := r.db.WithContext(ctx).First(&group, id).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// GetGroupByName 通过名称检索群组。
func (r *gormGroupRepository) GetGroupByName(ctx context.Context, name string) (*models.Group, error) {
	var group models.Group
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&group).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// UpdateGroup 更新群组信息。
func (r *gormGroupRepository) UpdateGroup(ctx context.Context, group *models.Group) error {
	return r.db.WithContext(ctx).Omit("Members").Save(group).Error
}

// DeleteGroup 在一个事务中删除群组的成员记录和群组本身。
// 删除后群组下仍有评论时回滚并返回 ErrGroupHasComments。
func (r *gormGroupRepository) DeleteGroup(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 先删成员行：与 CommentRepository.CreateAsMember 的成员行锁互斥，之后的计数能看到并发写入的评论
		if err := tx.Where("group_id = ?", id).Delete(&models.GroupMember{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Group{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return ensureNoComments(tx, ErrGroupHasComments, "group_id = ?", id)
	})
}

// ListGroups 按创建顺序列出所有群组。
func (r *gormGroupRepository) ListGroups(ctx context.Context, limit int, offset int) ([]*models.Group, error) {
	var groups []*models.Group
	err := paginate(r.db.WithContext(ctx).Order("id ASC"), limit, offset).Find(&groups).Error
	return groups, err
}

// SearchGroups 搜索群组。
func (r *gormGroupRepository) SearchGroups(ctx context.Context, query string, limit int, offset int) ([]*models.Group, error) {
	var groups []*models.Group
	dbQuery := r.db.WithContext(ctx).Model(&models.Group{}).
		Where("name LIKE ? OR description LIKE ?", "%"+query+"%", "%"+query+"%").
		Order("id ASC")

	err := paginate(dbQuery, limit, offset).Find(&groups).Error
	return groups, err
}

// AddMember 向群组中添加成员。已是成员时返回 gorm.ErrDuplicatedKey。
func (r *gormGroupRepository) AddMember(ctx context.Context, member *models.GroupMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

// GetMember 获取群组中的特定成员信息。
func (r *gormGroupRepository) GetMember(ctx context.Context, groupID uint, userID uint) (*models.GroupMember, error) {
	var member models.GroupMember
	err := r.db.WithContext(ctx).Where("group_id = ? AND user_id = ?", groupID, userID).First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// UpdateMember 更新群组成员信息，例如角色。
func (r *gormGroupRepository) UpdateMember(ctx context.Context, member *models.GroupMember) error {
	return r.db.WithContext(ctx).Save(member).Error
}

// RemoveMember 从群组中移除成员。成员不存在时返回 gorm.ErrRecordNotFound；
// 该成员在群组中仍有评论时回滚并返回 ErrMemberHasComments。
func (r *gormGroupRepository) RemoveMember(ctx context.Context, groupID uint, userID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("group_id = ? AND user_id = ?", groupID, userID).Delete(&models.GroupMember{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return ensureNoComments(tx, ErrMemberHasComments, "group_id = ? AND author_id = ?", groupID, userID)
	})
}

// GetGroupMembers 获取群组的所有成员列表。
func (r *gormGroupRepository) GetGroupMembers(ctx context.Context, groupID uint, limit int, offset int) ([]*models.GroupMember, error) {
	var members []*models.GroupMember
	dbQuery := r.db.WithContext(ctx).Where("group_id = ?", groupID).Order("joined_at ASC")
	err := paginate(dbQuery, limit, offset).Find(&members).Error
	return members, err
}

// GetUserGroups 获取用户加入的所有群组列表。
func (r *gormGroupRepository) GetUserGroups(ctx context.Context, userID uint, limit int, offset int) ([]*models.Group, error) {
	var groups []*models.Group
	dbQuery := r.db.WithContext(ctx).Joins("JOIN group_members gm ON gm.group_id = groups.id").
		Where("gm.user_id = ?", userID).
		Order("groups.id ASC")

	err := paginate(dbQuery, limit, offset).Find(&groups).Error
	return groups, err
}

func paginate(q *gorm.DB, limit int, offset int) *gorm.DB {
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	return q
}

func ensureNoComments(tx *gorm.DB, errIfAny error, query string, args ...interface{}) error {
	var count int64
	if err := tx.Model(&models.Comment{}).Where(query, args...).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return errIfAny
	}
	return nil
}
