package models

import (
	"time"
)

// Document is one record of any entity type. Body holds the record's fields
// as a JSON object, without the identifier.
type Document struct {
	ID         string    `json:"id" gorm:"primaryKey;type:text"`
	Collection string    `json:"collection" gorm:"type:text;not null;index:idx_documents_collection_name_key,priority:1"`
	Name       string    `json:"name" gorm:"type:text"`
	NameKey    string    `json:"nameKey" gorm:"type:text;index:idx_documents_collection_name_key,priority:2"`
	Body       string    `json:"body" gorm:"type:jsonb;not null"`
	CDate      time.Time `json:"cdate" gorm:"autoCreateTime"`
	MDate      time.Time `json:"mdate" gorm:"autoUpdateTime"`
}
