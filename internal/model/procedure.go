package model

import "time"

// Procedure 采购程序（consultation）
type Procedure struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Reference   string    `json:"reference" gorm:"size:100;uniqueIndex;not null"`
	Title       string    `json:"title" gorm:"size:500;not null"`
	Buyer       string    `json:"buyer" gorm:"size:255"`
	Description string    `json:"description" gorm:"type:text"`
	Status      string    `json:"status" gorm:"size:20;default:'draft'"` // draft, published, closed
	Budget      float64   `json:"budget" gorm:"default:0"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Lots        []Lot     `json:"lots,omitempty" gorm:"foreignKey:ProcedureID"`
}

// TableName 指定表名
func (Procedure) TableName() string {
	return "procedures"
}

// Lot 程序下的分标段
type Lot struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	ProcedureID uint      `json:"procedure_id" gorm:"uniqueIndex:idx_lots_procedure_number;not null"`
	Number      int       `json:"number" gorm:"uniqueIndex:idx_lots_procedure_number;not null"`
	Title       string    `json:"title" gorm:"size:500"`
	Budget      float64   `json:"budget" gorm:"default:0"` // 预算（HT）
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Lot) TableName() string {
	return "lots"
}
