package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"resumeBuilder/internal/database"
)

// GormGateway 基于 GORM 的文档存储实现，兼容 PostgreSQL 与 SQLite。
type GormGateway struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormGateway 构造 GormGateway。
func NewGormGateway(db *gorm.DB) *GormGateway {
	return &GormGateway{db: db, now: time.Now}
}

// WithClock overrides the timestamp source.
func (g *GormGateway) WithClock(now func() time.Time) *GormGateway {
	g.now = now
	return g
}

// Get 按 ID 读取文档。
func (g *GormGateway) Get(ctx context.Context, collection, id string) (Record, error) {
	var row database.Document
	err := g.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("get document %s: %w", id, err)
	}
	return toRecord(row), nil
}

// Create 写入新文档并分配 ID 与时间戳。
func (g *GormGateway) Create(ctx context.Context, collection, ownerID string, body json.RawMessage) (Record, error) {
	if err := checkObject(body); err != nil {
		return Record{}, err
	}
	now := g.now().UTC()
	row := database.Document{
		ID:          uuid.NewString(),
		Collection:  collection,
		OwnerID:     ownerID,
		Body:        datatypes.JSON(body),
		CreatedAt:   now,
		LastUpdated: now,
	}
	if err := g.db.WithContext(ctx).Create(&row).Error; err != nil {
		return Record{}, fmt.Errorf("create document: %w", err)
	}
	return toRecord(row), nil
}

// Update 合并顶层字段，文档不存在时返回 ErrNotFound。
func (g *GormGateway) Update(ctx context.Context, collection, id string, patch json.RawMessage) (Record, error) {
	var row database.Document
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("collection = ? AND id = ?", collection, id).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		merged, err := mergeBody(json.RawMessage(row.Body), patch)
		if err != nil {
			return err
		}
		row.Body = datatypes.JSON(merged)
		row.LastUpdated = g.now().UTC()
		return tx.Model(&database.Document{}).
			Where("collection = ? AND id = ?", collection, id).
			Updates(map[string]any{"body": row.Body, "last_updated": row.LastUpdated}).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidBody) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("update document %s: %w", id, err)
	}
	return toRecord(row), nil
}

// Delete 删除文档，文档不存在时返回 ErrNotFound。
func (g *GormGateway) Delete(ctx context.Context, collection, id string) error {
	res := g.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Delete(&database.Document{})
	if res.Error != nil {
		return fmt.Errorf("delete document %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// List 返回集合中属于 ownerID 的全部文档，按最后更新时间倒序。
func (g *GormGateway) List(ctx context.Context, collection, ownerID string) ([]Record, error) {
	var rows []database.Document
	if err := g.db.WithContext(ctx).
		Where("collection = ? AND owner_id = ?", collection, ownerID).
		Order("last_updated DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, toRecord(r))
	}
	return out, nil
}

func toRecord(row database.Document) Record {
	return Record{
		ID:          row.ID,
		Collection:  row.Collection,
		OwnerID:     row.OwnerID,
		Body:        json.RawMessage(row.Body),
		CreatedAt:   row.CreatedAt,
		LastUpdated: row.LastUpdated,
	}
}
