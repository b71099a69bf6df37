package gormrepo

import (
	"context"
	"errors"
	"log"
	"time"

	"shop-console/internal/domain"
	"shop-console/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// shopSettingsID is the id of the single shop_settings row.
const shopSettingsID = 1

type shopRecord struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	IsOpen    bool      `gorm:"column:is_open;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (shopRecord) TableName() string { return "shop_settings" }

type shopRepo struct {
	db *gorm.DB
}

var _ repository.ShopStatusRepository = (*shopRepo)(nil)

func NewShopStatusRepository(db *gorm.DB) repository.ShopStatusRepository {
	return &shopRepo{db: db}
}

func (r *shopRepo) Get(ctx context.Context) (domain.ShopStatus, error) {
	var rec shopRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", shopSettingsID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ShopStatus{}, repository.ErrNotFound
		}
		log.Printf("Get shop status error: %v", err)
		return domain.ShopStatus{}, err
	}
	return domain.ShopStatus{IsOpen: rec.IsOpen, UpdatedAt: rec.UpdatedAt}, nil
}

// Set upserts the singleton row so a fresh database works without seeding.
func (r *shopRepo) Set(ctx context.Context, isOpen bool, at time.Time) error {
	rec := shopRecord{ID: shopSettingsID, IsOpen: isOpen, UpdatedAt: at}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_open", "updated_at"}),
		}).
		Create(&rec).Error
	if err != nil {
		log.Printf("Set shop status error: %v", err)
		return err
	}
	return nil
}
