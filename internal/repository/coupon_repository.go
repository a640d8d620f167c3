package repository

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	couponDomain "github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/coupon"
	"github.com/Kilat-Pet-Delivery/service-coupon/pkg/domain"
)

// CouponModel is the GORM model for the coupons table.
type CouponModel struct {
	ID             int64               `gorm:"primaryKey;autoIncrement"`
	Name           string              `gorm:"type:varchar(255);not null;index"`
	Discount       string              `gorm:"type:varchar(100)"`
	ExpirationDate string              `gorm:"type:varchar(10);not null;index"`
	Store          string              `gorm:"type:varchar(255);index"`
	Status         string              `gorm:"type:varchar(50);not null;default:'active'"`
	Code           string              `gorm:"type:varchar(100);index"`
	StandardPrice  decimal.NullDecimal `gorm:"type:numeric(12,2)"`
	RegisteredBy   string              `gorm:"type:varchar(255)"`
	PaymentStatus  string              `gorm:"type:varchar(50)"`
	AdditionalInfo string              `gorm:"type:text"`
	TeamID         string              `gorm:"type:varchar(64);index"`
	CreatedAt      time.Time           `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt      time.Time           `gorm:"type:timestamptz;not null;default:now()"`
}

// TableName sets the table name.
func (CouponModel) TableName() string { return "coupons" }

// couponRow is a coupon joined with its issuer assignment.
type couponRow struct {
	CouponModel
	IssuerEmail *string
	IssuerName  *string
}

const couponRowColumns = "coupons.*, m.issuer_email AS issuer_email, i.name AS issuer_name"

// GormCouponRepository implements CouponRepository using GORM.
type GormCouponRepository struct {
	db *gorm.DB
}

// NewGormCouponRepository creates a new GormCouponRepository.
func NewGormCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

// Save inserts a coupon and stores the generated id on it.
func (r *GormCouponRepository) Save(ctx context.Context, c *couponDomain.Coupon) error {
	model := toCouponModel(c)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	c.SetID(model.ID)
	return nil
}

// Update overwrites every column of an existing coupon.
func (r *GormCouponRepository) Update(ctx context.Context, c *couponDomain.Coupon) error {
	model := toCouponModel(c)
	result := r.db.WithContext(ctx).
		Model(&CouponModel{}).
		Where("id = ?", model.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(&model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Coupon", strconv.FormatInt(c.ID(), 10))
	}
	return nil
}

// Delete removes a coupon and its issuer assignment.
func (r *GormCouponRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("coupon_id = ?", id).Delete(&AssignmentModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&CouponModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.NewNotFoundError("Coupon", strconv.FormatInt(id, 10))
		}
		return nil
	})
}

// FindByID returns a coupon with its assignment.
func (r *GormCouponRepository) FindByID(ctx context.Context, id int64) (*couponDomain.Coupon, error) {
	var rows []couponRow
	if err := r.joined(ctx).Select(couponRowColumns).Where("coupons.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.NewNotFoundError("Coupon", strconv.FormatInt(id, 10))
	}
	return toCouponDomain(&rows[0]), nil
}

// List returns one page of coupons matching f, newest id first, and the total match count.
func (r *GormCouponRepository) List(ctx context.Context, f couponDomain.ListFilter) ([]*couponDomain.Coupon, int64, error) {
	var total int64
	if err := applyListFilter(r.joined(ctx), f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []couponRow
	if err := applyListFilter(r.joined(ctx), f).
		Select(couponRowColumns).
		Order("coupons.id DESC").
		Offset(f.Offset()).
		Limit(f.Size).
		Scan(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toCouponDomains(rows), total, nil
}

// FindAll returns every coupon of the team, or all coupons for an empty team.
func (r *GormCouponRepository) FindAll(ctx context.Context, teamID string) ([]*couponDomain.Coupon, error) {
	var rows []couponRow
	q := r.joined(ctx).Select(couponRowColumns).Order("coupons.id DESC")
	if teamID != "" {
		q = q.Where("coupons.team_id = ?", teamID)
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return toCouponDomains(rows), nil
}

// FindByIssuer returns the coupons assigned to email.
func (r *GormCouponRepository) FindByIssuer(ctx context.Context, email string) ([]*couponDomain.Coupon, error) {
	var rows []couponRow
	if err := r.joined(ctx).
		Select(couponRowColumns).
		Where("m.issuer_email = ?", email).
		Order("coupons.id DESC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return toCouponDomains(rows), nil
}

// DistinctNames returns the sorted distinct coupon names.
func (r *GormCouponRepository) DistinctNames(ctx context.Context, teamID string) ([]string, error) {
	return r.distinct(ctx, "name", teamID)
}

// DistinctStores returns the sorted distinct store names.
func (r *GormCouponRepository) DistinctStores(ctx context.Context, teamID string) ([]string, error) {
	return r.distinct(ctx, "store", teamID)
}

func (r *GormCouponRepository) distinct(ctx context.Context, column, teamID string) ([]string, error) {
	values := make([]string, 0)
	q := r.db.WithContext(ctx).Model(&CouponModel{}).Where(column + " <> ''")
	if teamID != "" {
		q = q.Where("team_id = ?", teamID)
	}
	if err := q.Distinct(column).Order(column).Pluck(column, &values).Error; err != nil {
		return nil, err
	}
	return values, nil
}

// ExpireBefore marks active coupons dated before date as expired.
func (r *GormCouponRepository) ExpireBefore(ctx context.Context, date string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&CouponModel{}).
		Where("LOWER(status) IN ? AND expiration_date < ?", couponDomain.SynonymsOf(couponDomain.StatusActive), date).
		Updates(map[string]interface{}{
			"status":     couponDomain.StatusExpired,
			"updated_at": time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}

func (r *GormCouponRepository) joined(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("coupons").
		Joins("LEFT JOIN coupon_issuer_mapping m ON m.coupon_id = coupons.id").
		Joins("LEFT JOIN coupon_issuers i ON i.email = m.issuer_email")
}

func applyListFilter(q *gorm.DB, f couponDomain.ListFilter) *gorm.DB {
	if f.TeamID != "" {
		q = q.Where("coupons.team_id = ?", f.TeamID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + escapeLike(strings.ToLower(s)) + "%"
		q = q.Where(`(LOWER(coupons.name) LIKE ? ESCAPE '\' OR LOWER(coupons.store) LIKE ? ESCAPE '\' OR LOWER(coupons.code) LIKE ? ESCAPE '\')`, like, like, like)
	}
	if len(f.CouponNames) > 0 {
		q = q.Where("coupons.name IN ?", f.CouponNames)
	}
	if len(f.StoreNames) > 0 {
		q = q.Where("coupons.store IN ?", f.StoreNames)
	}
	if len(f.IssuerEmails) > 0 {
		q = q.Where("m.issuer_email IN ?", f.IssuerEmails)
	}
	if f.OnlyUnassigned {
		q = q.Where("m.coupon_id IS NULL")
	}
	return q
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern escaped with '\'.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func toCouponModel(c *couponDomain.Coupon) CouponModel {
	d := c.Details()
	return CouponModel{
		ID:             c.ID(),
		Name:           d.Name,
		Discount:       d.Discount,
		ExpirationDate: d.ExpirationDate,
		Store:          d.Store,
		Status:         d.Status,
		Code:           d.Code,
		StandardPrice:  d.StandardPrice,
		RegisteredBy:   d.RegisteredBy,
		PaymentStatus:  d.PaymentStatus,
		AdditionalInfo: d.AdditionalInfo,
		TeamID:         c.TeamID(),
		CreatedAt:      c.CreatedAt(),
		UpdatedAt:      c.UpdatedAt(),
	}
}

func toCouponDomain(row *couponRow) *couponDomain.Coupon {
	m := row.CouponModel
	return couponDomain.Reconstruct(
		m.ID,
		couponDomain.Details{
			Name:           m.Name,
			Discount:       m.Discount,
			ExpirationDate: m.ExpirationDate,
			Store:          m.Store,
			Status:         m.Status,
			Code:           m.Code,
			StandardPrice:  m.StandardPrice,
			RegisteredBy:   m.RegisteredBy,
			PaymentStatus:  m.PaymentStatus,
			AdditionalInfo: m.AdditionalInfo,
		},
		m.TeamID,
		deref(row.IssuerEmail),
		deref(row.IssuerName),
		m.CreatedAt,
		m.UpdatedAt,
	)
}

func toCouponDomains(rows []couponRow) []*couponDomain.Coupon {
	out := make([]*couponDomain.Coupon, len(rows))
	for i := range rows {
		out[i] = toCouponDomain(&rows[i])
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// isDuplicate reports a unique constraint violation.
func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
