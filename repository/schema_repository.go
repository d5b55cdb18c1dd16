package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Column information_schema.COLUMNS 中的一列
type Column struct {
	Name     string  `gorm:"column:column_name" json:"name"`
	Type     string  `gorm:"column:column_type" json:"type"`
	Nullable string  `gorm:"column:is_nullable" json:"nullable"`
	Key      string  `gorm:"column:column_key" json:"key"`
	Default  *string `gorm:"column:column_default" json:"default"`
}

type SchemaRepository interface {
	Columns(ctx context.Context, table string) ([]Column, error)
}

type gormSchemaRepository struct {
	db *gorm.DB
}

func NewSchemaRepository(db *gorm.DB) SchemaRepository {
	return &gormSchemaRepository{db: db}
}

// Columns 表不存在时返回空切片
func (r *gormSchemaRepository) Columns(ctx context.Context, table string) ([]Column, error) {
	cols := make([]Column, 0)
	err := r.db.WithContext(ctx).Raw(
		`SELECT COLUMN_NAME AS column_name, COLUMN_TYPE AS column_type, IS_NULLABLE AS is_nullable,
		        COLUMN_KEY AS column_key, COLUMN_DEFAULT AS column_default
		   FROM INFORMATION_SCHEMA.COLUMNS
		  WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
		  ORDER BY ORDINAL_POSITION`, table).
		Scan(&cols).Error
	if err != nil {
		return nil, fmt.Errorf("failed to describe table %s: %w", table, err)
	}
	return cols, nil
}
