package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dealwatch/internal/domain/model"
	"dealwatch/internal/domain/tier"
	"dealwatch/pkg/metrics"
)

// GormStore implements Store on a gorm DB handle.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore creates a store with configuration options.
func NewGormStore(db *gorm.DB, opts ...Option) *GormStore {
	s := &GormStore{
		db:  db,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates or updates the schema for all owned tables.
func (s *GormStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&model.Product{},
		&model.PricePoint{},
		&model.Deal{},
	)
}

// FindDue selects due products for a tier, oldest check first. Sqlite sorts
// NULL first on ascending order, which puts never-checked products ahead of
// everything else.
func (s *GormStore) FindDue(ctx context.Context, t tier.Tier, limit int) ([]DueRef, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	cutoff := s.now().Add(-t.Interval)
	var refs []DueRef
	err := s.db.WithContext(ctx).
		Model(&model.Product{}).
		Select("id", "external_id").
		Where("is_active = ?", true).
		Where("tier = ?", t.Level).
		Where("acquisition_channel = ?", t.Channel).
		Where("last_checked_at IS NULL OR last_checked_at <= ?", cutoff).
		Order("last_checked_at ASC").
		Limit(limit).
		Find(&refs).Error
	if err != nil {
		metrics.RecordStoreError()
		return nil, fmt.Errorf("find due tier %d: %w", t.Level, err)
	}
	return refs, nil
}

// DueStats counts due-but-unclaimed products per tier.
func (s *GormStore) DueStats(ctx context.Context) (map[int]int64, error) {
	stats := make(map[int]int64, tier.LaneCount)
	for _, t := range tier.All() {
		cutoff := s.now().Add(-t.Interval)
		var n int64
		err := s.db.WithContext(ctx).
			Model(&model.Product{}).
			Where("is_active = ?", true).
			Where("tier = ?", t.Level).
			Where("acquisition_channel = ?", t.Channel).
			Where("last_checked_at IS NULL OR last_checked_at <= ?", cutoff).
			Count(&n).Error
		if err != nil {
			metrics.RecordStoreError()
			return nil, fmt.Errorf("due stats tier %d: %w", t.Level, err)
		}
		stats[t.Level] = n
	}
	return stats, nil
}

func (s *GormStore) GetProduct(ctx context.Context, id uint) (model.Product, error) {
	var p model.Product
	err := s.db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Product{}, ErrNotFound
	}
	if err != nil {
		metrics.RecordStoreError()
		return model.Product{}, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

func (s *GormStore) CreateProduct(ctx context.Context, p *model.Product) error {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("create product %s: %w", p.ExternalID, err)
	}
	return nil
}

func (s *GormStore) SaveProduct(ctx context.Context, p *model.Product) error {
	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("save product %d: %w", p.ID, err)
	}
	return nil
}

// ApplyQuote is last-write-wins keyed on checked_at: the guard keeps
// last_checked_at monotonic under duplicate or out-of-order delivery.
func (s *GormStore) ApplyQuote(ctx context.Context, id uint, q model.Quote, checkedAt time.Time) error {
	err := s.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", id).
		Where("last_checked_at IS NULL OR last_checked_at <= ?", checkedAt).
		Updates(map[string]interface{}{
			"current_price":   q.Price,
			"list_price":      q.ListPrice,
			"currency":        q.Currency,
			"is_available":    q.Available,
			"rating":          q.Rating,
			"review_count":    q.ReviewCount,
			"last_checked_at": checkedAt,
			"check_count":     gorm.Expr("check_count + 1"),
		}).Error
	if err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("apply quote product %d: %w", id, err)
	}
	return nil
}

func (s *GormStore) MarkUnavailable(ctx context.Context, id uint, checkedAt time.Time) error {
	err := s.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", id).
		Where("last_checked_at IS NULL OR last_checked_at <= ?", checkedAt).
		Updates(map[string]interface{}{
			"is_available":    false,
			"last_checked_at": checkedAt,
			"check_count":     gorm.Expr("check_count + 1"),
		}).Error
	if err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("mark unavailable product %d: %w", id, err)
	}
	return nil
}

func (s *GormStore) UpdateClassification(ctx context.Context, id uint, score, tierLevel int) error {
	err := s.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"priority_score": score,
			"tier":           tierLevel,
		}).Error
	if err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("update classification product %d: %w", id, err)
	}
	return nil
}

func (s *GormStore) SetChannel(ctx context.Context, id uint, ch model.Channel) error {
	err := s.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", id).
		Update("acquisition_channel", ch).Error
	if err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("set channel product %d: %w", id, err)
	}
	return nil
}

func (s *GormStore) IncRateLimitRejections(ctx context.Context, id uint) (int, error) {
	err := s.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", id).
		Update("rate_limit_rejections", gorm.Expr("rate_limit_rejections + 1")).Error
	if err != nil {
		metrics.RecordStoreError()
		return 0, fmt.Errorf("count rejection product %d: %w", id, err)
	}

	var count int
	err = s.db.WithContext(ctx).
		Model(&model.Product{}).
		Select("rate_limit_rejections").
		Where("id = ?", id).
		Scan(&count).Error
	if err != nil {
		metrics.RecordStoreError()
		return 0, fmt.Errorf("read rejections product %d: %w", id, err)
	}
	return count, nil
}

func (s *GormStore) ResetRateLimitRejections(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", id).
		Update("rate_limit_rejections", 0).Error
	if err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("reset rejections product %d: %w", id, err)
	}
	return nil
}

// AppendPricePoint tolerates duplicate delivery: the unique
// (product_id, recorded_at) index plus DO NOTHING collapses replays.
func (s *GormStore) AppendPricePoint(ctx context.Context, pt model.PricePoint) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&pt).Error
	if err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("append price point product %d: %w", pt.ProductID, err)
	}
	return nil
}

func (s *GormStore) TrailingPrices(ctx context.Context, productID uint, since time.Time) ([]int64, error) {
	var prices []int64
	err := s.db.WithContext(ctx).
		Model(&model.PricePoint{}).
		Where("product_id = ?", productID).
		Where("recorded_at >= ?", since).
		Where("is_available = ?", true).
		Order("recorded_at ASC").
		Pluck("price", &prices).Error
	if err != nil {
		metrics.RecordStoreError()
		return nil, fmt.Errorf("trailing prices product %d: %w", productID, err)
	}
	return prices, nil
}

func (s *GormStore) MinPriceSince(ctx context.Context, productID uint, since time.Time) (int64, bool, error) {
	var min *int64
	err := s.db.WithContext(ctx).
		Model(&model.PricePoint{}).
		Where("product_id = ?", productID).
		Where("recorded_at >= ?", since).
		Where("is_available = ?", true).
		Select("MIN(price)").
		Scan(&min).Error
	if err != nil {
		metrics.RecordStoreError()
		return 0, false, fmt.Errorf("min price product %d: %w", productID, err)
	}
	if min == nil {
		return 0, false, nil
	}
	return *min, true, nil
}

func (s *GormStore) ActiveDeal(ctx context.Context, productID uint) (model.Deal, error) {
	var d model.Deal
	err := s.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Where("is_active = ?", true).
		First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Deal{}, ErrNotFound
	}
	if err != nil {
		metrics.RecordStoreError()
		return model.Deal{}, fmt.Errorf("active deal product %d: %w", productID, err)
	}
	return d, nil
}

func (s *GormStore) CreateDeal(ctx context.Context, d *model.Deal) error {
	if err := s.db.WithContext(ctx).Create(d).Error; err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("create deal product %d: %w", d.ProductID, err)
	}
	return nil
}

func (s *GormStore) SaveDeal(ctx context.Context, d *model.Deal) error {
	if err := s.db.WithContext(ctx).Save(d).Error; err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("save deal %s: %w", d.ID, err)
	}
	return nil
}
