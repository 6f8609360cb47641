package models

import "time"

// IncidentModel is an incident posted on a status page. Content is markdown.
type IncidentModel struct {
	Base
	StatusPageID string     `json:"status_page_id" gorm:"type:char(36);index;not null"`
	Title        string     `json:"title"          gorm:"not null"`
	Content      string     `json:"content"        gorm:"type:text"`
	Style        string     `json:"style"` // info | warning | danger | primary
	Pinned       bool       `json:"pinned"`
	Resolved     bool       `json:"resolved"`
	ResolvedAt   *time.Time `json:"resolved_at"`
}

func (IncidentModel) TableName() string { return "incidents" }
