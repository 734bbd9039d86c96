package models

// Post is a status update on a user's own timeline, outside any group.
type Post struct {
	BaseModel
	AuthorID uint   `gorm:"not null;index" json:"authorId"`
	Content  string `gorm:"type:text;not null" json:"content"`
}

// TableName 指定 Post 模型的表名。
func (Post) TableName() string {
	return "posts"
}
