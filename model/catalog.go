package model

// ArtistRow 对应 artist 表
type ArtistRow struct {
	ID   uint   `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"size:255;uniqueIndex;not null"`
}

// TableName 指定表名
func (ArtistRow) TableName() string {
	return "artist"
}

// GenreRow 对应 genre 表
type GenreRow struct {
	ID   uint   `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"size:64;uniqueIndex;not null"`
}

// TableName 指定表名
func (GenreRow) TableName() string {
	return "genre"
}

// CategoryRow 对应 category 表
type CategoryRow struct {
	ID   uint   `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"size:32;uniqueIndex;not null"`
}

// TableName 指定表名
func (CategoryRow) TableName() string {
	return "category"
}

// DiscRow 对应 disc 表
type DiscRow struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	DiscID       string `gorm:"column:discid;size:8;index;not null"`
	CategoryID   uint   `gorm:"index;not null"`
	ArtistID     uint   `gorm:"not null"`
	Title        string `gorm:"size:255"`
	Year         int
	GenreID      uint
	Length       int
	Revision     int
	ProcessedBy  string `gorm:"size:255"`
	SubmittedVia string `gorm:"size:255"`
	ExtraData    string `gorm:"type:text"`
	PlayOrder    string `gorm:"column:playorder;size:255"`
}

// TableName 指定表名
func (DiscRow) TableName() string {
	return "disc"
}

// TrackRow 对应 track 表
type TrackRow struct {
	DiscID    uint   `gorm:"primaryKey;autoIncrement:false"`
	Num       int    `gorm:"primaryKey;autoIncrement:false"`
	ArtistID  uint   `gorm:"not null"`
	Title     string `gorm:"size:255"`
	Offset    int    `gorm:"column:toffset"`
	ExtraData string `gorm:"type:text"`
	Length    int
}

// TableName 指定表名
func (TrackRow) TableName() string {
	return "track"
}

// CatalogModels lists the SQL row models in migration order.
func CatalogModels() []interface{} {
	return []interface{}{&ArtistRow{}, &GenreRow{}, &CategoryRow{}, &DiscRow{}, &TrackRow{}}
}

// CategoryCount is the number of database entries in one category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}
