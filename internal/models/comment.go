package models

// Comment is a post in a group's discussion. A comment with a nil ParentID is a
// root comment; otherwise ParentID points at a comment in the same group.
type Comment struct {
	BaseModel
	AuthorID uint   `gorm:"not null;index:idx_comment_group_author,priority:2" json:"authorId"`
	GroupID  uint   `gorm:"not null;index:idx_comment_group_author,priority:1" json:"groupId"`
	Body     string `gorm:"type:text;not null" json:"body"`
	ParentID *uint  `gorm:"index" json:"parentId,omitempty"`
}

// TableName 指定 Comment 模型的表名。
func (Comment) TableName() string {
	return "comments"
}

// IsRoot reports whether the comment starts a thread.
func (c *Comment) IsRoot() bool {
	return c.ParentID == nil
}
