package models

// StatusPageModel is a public status page identified by its slug.
type StatusPageModel struct {
	Base
	Slug        string `json:"slug"        gorm:"uniqueIndex;not null"`
	Title       string `json:"title"       gorm:"not null"`
	Description string `json:"description" gorm:"type:text"`
	Published   bool   `json:"published"`
}

func (StatusPageModel) TableName() string { return "status_pages" }
