package persistence

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/induservicios/backend/internal/domain/shared"
)

// versioned is an aggregate carrying an optimistic lock version
type versioned interface {
	GetID() uuid.UUID
	GetVersion() int
	IncrementVersion()
	PersistedVersion() int
	MarkPersisted()
}

// saveWithLock updates every column of a loaded aggregate only while the
// stored version still equals the one it was read with. Columns omitted on
// db are left untouched. A concurrent write yields shared.ErrConcurrencyConflict.
func saveWithLock(db *gorm.DB, model versioned) error {
	expected := model.PersistedVersion()
	if model.GetVersion() == expected {
		model.IncrementVersion()
	}

	result := db.Model(model).
		Select("*").
		Where("version = ?", expected).
		Updates(model)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := db.Session(&gorm.Session{NewDB: true}).
			Model(model).
			Where("id = ?", model.GetID()).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return shared.ErrNotFound
		}
		return shared.ErrConcurrencyConflict
	}
	model.MarkPersisted()
	return nil
}

// insertVersioned creates a new aggregate and records its stored version
func insertVersioned(db *gorm.DB, model versioned) error {
	if err := db.Create(model).Error; err != nil {
		return translate(err)
	}
	model.MarkPersisted()
	return nil
}

func markLoaded[T any, PT interface {
	*T
	MarkPersisted()
}](items []T) {
	for i := range items {
		PT(&items[i]).MarkPersisted()
	}
}
