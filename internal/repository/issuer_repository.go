package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	issuerDomain "github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/issuer"
	"github.com/Kilat-Pet-Delivery/service-coupon/pkg/domain"
)

// IssuerModel is the GORM model for the coupon_issuers table.
type IssuerModel struct {
	ID         uint       `gorm:"primaryKey"`
	Name       string     `gorm:"type:varchar(100);not null"`
	Email      string     `gorm:"type:varchar(255);uniqueIndex;not null"`
	Phone      string     `gorm:"type:varchar(20)"`
	LastLogin  *time.Time `gorm:"type:timestamptz"`
	LoginCount int        `gorm:"not null;default:0"`
	CreatedAt  time.Time  `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt  time.Time  `gorm:"type:timestamptz;not null;default:now()"`
}

// TableName sets the table name.
func (IssuerModel) TableName() string { return "coupon_issuers" }

// AssignmentModel is the GORM model for the coupon_issuer_mapping table.
// A coupon has at most one issuer.
type AssignmentModel struct {
	CouponID    int64     `gorm:"primaryKey;autoIncrement:false"`
	IssuerEmail string    `gorm:"type:varchar(255);not null;index"`
	AssignedAt  time.Time `gorm:"type:timestamptz;not null;default:now()"`
}

// TableName sets the table name.
func (AssignmentModel) TableName() string { return "coupon_issuer_mapping" }

type issuerRow struct {
	IssuerModel
	CouponCount int64
}

// GormIssuerRepository implements IssuerRepository using GORM.
type GormIssuerRepository struct {
	db *gorm.DB
}

// NewGormIssuerRepository creates a new GormIssuerRepository.
func NewGormIssuerRepository(db *gorm.DB) *GormIssuerRepository {
	return &GormIssuerRepository{db: db}
}

// Save inserts an issuer.
func (r *GormIssuerRepository) Save(ctx context.Context, i *issuerDomain.Issuer) error {
	model := toIssuerModel(i)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isDuplicate(err) {
			return domain.NewConflictError("issuer " + i.Email() + " already exists")
		}
		return err
	}
	return nil
}

// Update persists name, phone and login bookkeeping.
func (r *GormIssuerRepository) Update(ctx context.Context, i *issuerDomain.Issuer) error {
	result := r.db.WithContext(ctx).
		Model(&IssuerModel{}).
		Where("email = ?", i.Email()).
		Updates(map[string]interface{}{
			"name":        i.Name(),
			"phone":       i.Phone(),
			"last_login":  i.LastLogin(),
			"login_count": i.LoginCount(),
			"updated_at":  i.UpdatedAt(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Issuer", i.Email())
	}
	return nil
}

// Delete removes the issuer and its assignments in one transaction.
func (r *GormIssuerRepository) Delete(ctx context.Context, email string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("issuer_email = ?", email).Delete(&AssignmentModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("email = ?", email).Delete(&IssuerModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.NewNotFoundError("Issuer", email)
		}
		return nil
	})
}

// FindByEmail returns an issuer with its coupon count.
func (r *GormIssuerRepository) FindByEmail(ctx context.Context, email string) (*issuerDomain.Issuer, error) {
	var rows []issuerRow
	if err := r.counted(ctx).Where("coupon_issuers.email = ?", email).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.NewNotFoundError("Issuer", email)
	}
	return toIssuerDomain(&rows[0]), nil
}

// List returns all issuers, newest first.
func (r *GormIssuerRepository) List(ctx context.Context) ([]*issuerDomain.Issuer, error) {
	var rows []issuerRow
	if err := r.counted(ctx).Order("coupon_issuers.created_at DESC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*issuerDomain.Issuer, len(rows))
	for i := range rows {
		out[i] = toIssuerDomain(&rows[i])
	}
	return out, nil
}

// Assign upserts the coupon's assignment.
func (r *GormIssuerRepository) Assign(ctx context.Context, couponID int64, email string, at time.Time) error {
	model := AssignmentModel{CouponID: couponID, IssuerEmail: email, AssignedAt: at.UTC()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "coupon_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"issuer_email", "assigned_at"}),
	}).Create(&model).Error
}

func (r *GormIssuerRepository) counted(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("coupon_issuers").
		Select("coupon_issuers.*, COUNT(m.coupon_id) AS coupon_count").
		Joins("LEFT JOIN coupon_issuer_mapping m ON m.issuer_email = coupon_issuers.email").
		Group("coupon_issuers.id")
}

func toIssuerModel(i *issuerDomain.Issuer) IssuerModel {
	return IssuerModel{
		Name:       i.Name(),
		Email:      i.Email(),
		Phone:      i.Phone(),
		LastLogin:  i.LastLogin(),
		LoginCount: i.LoginCount(),
		CreatedAt:  i.CreatedAt(),
		UpdatedAt:  i.UpdatedAt(),
	}
}

func toIssuerDomain(row *issuerRow) *issuerDomain.Issuer {
	m := row.IssuerModel
	return issuerDomain.Reconstruct(m.Name, m.Email, m.Phone, row.CouponCount, m.LastLogin, m.LoginCount, m.CreatedAt, m.UpdatedAt)
}
