package models

// OptionModel stores key/value settings (the persisted site config blob).
type OptionModel struct {
	Base
	Name  string `json:"name"  gorm:"uniqueIndex;not null"`
	Value string `json:"value" gorm:"type:text"`
}

func (OptionModel) TableName() string { return "options" }
