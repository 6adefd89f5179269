package database

import (
	"time"

	"gorm.io/datatypes"
)

// Document 是远端文档存储中的一条记录。Body 以 JSON 保存整份文档内容，
// CreatedAt/LastUpdated 只由存储层赋值。
type Document struct {
	ID          string         `gorm:"primaryKey;size:36"`
	Collection  string         `gorm:"size:255;index:idx_documents_collection_owner"`
	OwnerID     string         `gorm:"size:128;index:idx_documents_collection_owner"`
	Body        datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt   time.Time
	LastUpdated time.Time `gorm:"index"`
}
