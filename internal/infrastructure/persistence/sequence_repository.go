package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Sequence is a named counter row used to build document codes
type Sequence struct {
	Name  string `gorm:"type:varchar(60);primaryKey"`
	Value int64  `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (Sequence) TableName() string {
	return "sequences"
}

// GormSequenceGenerator implements shared.SequenceGenerator on a table of counters
type GormSequenceGenerator struct {
	db *gorm.DB
}

// NewGormSequenceGenerator creates a new GormSequenceGenerator
func NewGormSequenceGenerator(db *gorm.DB) *GormSequenceGenerator {
	return &GormSequenceGenerator{db: db}
}

// Next increments the named counter and returns its new value. The upsert
// holds the row lock until commit so concurrent callers never share a value.
func (g *GormSequenceGenerator) Next(ctx context.Context, name string) (int64, error) {
	var value int64
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.Assignments(map[string]any{"value": gorm.Expr("sequences.value + 1")}),
		}).Create(&Sequence{Name: name, Value: 1}).Error; err != nil {
			return err
		}
		return tx.Model(&Sequence{}).Where("name = ?", name).Pluck("value", &value).Error
	})
	if err != nil {
		return 0, fmt.Errorf("next value of sequence %s: %w", name, err)
	}
	return value, nil
}
