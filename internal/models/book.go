package models

// Book is an entry in the shared catalog. Titles are unique.
type Book struct {
	BaseModel
	Title   string `gorm:"type:varchar(255);not null;uniqueIndex" json:"title"`
	Author  string `gorm:"type:varchar(255)" json:"author"`
	Summary string `gorm:"type:text" json:"summary,omitempty"`
	Review  int    `gorm:"default:0" json:"review"`

	Groups []BookGroup `gorm:"foreignKey:BookID" json:"groups,omitempty"`
}

// TableName 指定 Book 模型的表名。
func (Book) TableName() string {
	return "books"
}

// BookGroup links a book to a group that is reading it.
type BookGroup struct {
	BookID  uint `gorm:"primaryKey;autoIncrement:false" json:"bookId"`
	GroupID uint `gorm:"primaryKey;autoIncrement:false;index" json:"groupId"`
}

// TableName 指定 BookGroup 模型的表名。
func (BookGroup) TableName() string {
	return "book_groups"
}
