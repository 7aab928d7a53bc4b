package model

import "time"

// Activity 操作记录
type Activity struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"` // UUID
	ProcedureID uint      `json:"procedure_id" gorm:"index;not null"`
	Kind        string    `json:"kind" gorm:"size:50;not null"` // lot.saved, lot.imported, lot.duplicated, lot.exported, section.saved, section.imported
	DocType     string    `json:"doc_type" gorm:"size:20"`
	LotNumber   int       `json:"lot_number"`
	Detail      string    `json:"detail" gorm:"type:text"` // JSON
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
}

// TableName 指定表名
func (Activity) TableName() string {
	return "activities"
}
