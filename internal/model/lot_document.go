package model

import "time"

// LotDocument 分标段的表格文档（BPU / DQE / DPGF）
// (procedure_id, doc_type, lot_number) 唯一，Payload 为表格 JSON
type LotDocument struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	ProcedureID uint      `json:"procedure_id" gorm:"uniqueIndex:idx_lot_documents_key;not null"`
	DocType     string    `json:"doc_type" gorm:"size:20;uniqueIndex:idx_lot_documents_key;not null"`
	LotNumber   int       `json:"lot_number" gorm:"uniqueIndex:idx_lot_documents_key;not null"`
	Payload     string    `json:"payload" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 指定表名
func (LotDocument) TableName() string {
	return "lot_documents"
}
