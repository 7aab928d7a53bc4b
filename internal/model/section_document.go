package model

import "time"

// SectionDocument 章节型文档（CCAP / CCTP 等），Payload 为章节列表 JSON
type SectionDocument struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	ProcedureID uint      `json:"procedure_id" gorm:"uniqueIndex:idx_section_documents_key;not null"`
	DocType     string    `json:"doc_type" gorm:"size:20;uniqueIndex:idx_section_documents_key;not null"`
	LotNumber   int       `json:"lot_number" gorm:"uniqueIndex:idx_section_documents_key;not null"`
	Payload     string    `json:"payload" gorm:"type:text"`
	SourceFile  string    `json:"source_file" gorm:"size:255"` // 最近一次导入的文件名
	Tier        string    `json:"tier" gorm:"size:20"`         // 最近一次导入采用的识别方式
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 指定表名
func (SectionDocument) TableName() string {
	return "section_documents"
}
