package gormrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"shop-console/internal/domain"
	"shop-console/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type orderRecord struct {
	ID            uint64          `gorm:"column:id;primaryKey;autoIncrement"`
	Status        string          `gorm:"column:status;type:varchar(16);not null;default:'pending';index"`
	Items         datatypes.JSON  `gorm:"column:items;not null"`
	Total         decimal.Decimal `gorm:"column:total;type:decimal(12,2);not null;default:0"`
	PaymentMethod string          `gorm:"column:payment_method;type:varchar(16)"`
	SlipURL       *string         `gorm:"column:slip_url"`
	CustomerPhone *string         `gorm:"column:customer_phone;type:varchar(32)"`
	LineUserID    *string         `gorm:"column:line_user_id;type:varchar(64)"`
	Note          *string         `gorm:"column:note"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (orderRecord) TableName() string { return "orders" }

type orderRepo struct {
	db *gorm.DB
}

var _ repository.OrderRepository = (*orderRepo)(nil)

func NewOrderRepository(db *gorm.DB) repository.OrderRepository {
	return &orderRepo{db: db}
}

// Migrate creates or updates the tables the console reads and writes.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&orderRecord{}, &shopRecord{})
}

func (r *orderRepo) List(ctx context.Context) ([]domain.Order, error) {
	var records []orderRecord
	if err := r.db.WithContext(ctx).Order("id DESC").Find(&records).Error; err != nil {
		return nil, err
	}

	out := make([]domain.Order, 0, len(records))
	for _, rec := range records {
		o, err := rec.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id uint64, from, to domain.OrderStatus) error {
	q := r.db.WithContext(ctx).
		Model(&orderRecord{}).
		Where("id = ?", id)
	if from != "" {
		q = q.Where("status = ?", string(from))
	}
	result := q.Update("status", string(to))
	if result.Error != nil {
		log.Printf("UpdateStatus error: %v", result.Error)
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// MySQL counts changed rows, not matched ones, so look at the row.
	var rec orderRecord
	err := r.db.WithContext(ctx).Select("status").Where("id = ?", id).Take(&rec).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		log.Printf("UpdateStatus: order %d not found", id)
		return repository.ErrNotFound
	case err != nil:
		return err
	case from != "" && rec.Status != string(from):
		log.Printf("UpdateStatus: order %d is %s, expected %s", id, rec.Status, from)
		return fmt.Errorf("%w: order %d is %s", repository.ErrStatusChanged, id, rec.Status)
	}
	return nil
}

func (r *orderRepo) DeleteNotAccepted(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status <> ?", string(domain.StatusAccepted)).
		Delete(&orderRecord{})
	if result.Error != nil {
		log.Printf("DeleteNotAccepted error: %v", result.Error)
		return 0, result.Error
	}
	log.Printf("Deleted %d non-accepted orders", result.RowsAffected)
	return result.RowsAffected, nil
}

func (rec orderRecord) toDomain() (domain.Order, error) {
	o := domain.Order{
		ID:            rec.ID,
		Status:        domain.OrderStatus(rec.Status),
		Total:         rec.Total,
		PaymentMethod: domain.PaymentMethod(rec.PaymentMethod),
		SlipURL:       rec.SlipURL,
		CustomerPhone: rec.CustomerPhone,
		LineUserID:    rec.LineUserID,
		Note:          rec.Note,
		CreatedAt:     rec.CreatedAt,
	}
	if len(rec.Items) > 0 && string(rec.Items) != "null" {
		if err := json.Unmarshal(rec.Items, &o.Items); err != nil {
			return domain.Order{}, fmt.Errorf("order %d: decode items: %w", rec.ID, err)
		}
	}
	return o, nil
}
