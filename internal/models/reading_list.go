package models

// ReadingList is a named list of books owned by one user.
type ReadingList struct {
	BaseModel
	Name    string `gorm:"type:varchar(100);not null;uniqueIndex:idx_reading_list_owner_name" json:"name"`
	OwnerID uint   `gorm:"not null;uniqueIndex:idx_reading_list_owner_name" json:"ownerId"`

	Books []Book `gorm:"-" json:"books"`
}

// TableName 指定 ReadingList 模型的表名。
func (ReadingList) TableName() string {
	return "reading_lists"
}

// ReadingListBook is the join row between a reading list and a book.
type ReadingListBook struct {
	ReadingListID uint `gorm:"primaryKey;autoIncrement:false"`
	BookID        uint `gorm:"primaryKey;autoIncrement:false;index"`
}

// TableName 指定 ReadingListBook 模型的表名。
func (ReadingListBook) TableName() string {
	return "reading_list_books"
}
