package repository

import (
	"context"
	"fmt"

	"paydiag/model"

	"gorm.io/gorm"
)

// PackageRepository 充值套餐查询
type PackageRepository interface {
	ListPackages(ctx context.Context, activeOnly bool) ([]model.PaymentPackage, error)
}

// OrderRepository 支付订单查询
type OrderRepository interface {
	FindByOrderNo(ctx context.Context, orderNo string) (*OrderWithUser, error)
	ListPaidByUsers(ctx context.Context, userIDs []int64) ([]model.PaymentOrder, error)
	CountByStatus(ctx context.Context, userID int64) (map[model.OrderStatus]int64, error)
	ListOrphans(ctx context.Context, limit int) ([]model.PaymentOrder, error)
}

// OrderWithUser 订单与用户的 LEFT JOIN 结果，用户不存在时 User* 字段为 nil
type OrderWithUser struct {
	model.PaymentOrder `gorm:"embedded"`
	UserRefID          *int64  `gorm:"column:user_ref_id"`
	UserUsername       *string `gorm:"column:user_username"`
	UserEmail          *string `gorm:"column:user_email"`
}

type gormPackageRepository struct {
	db *gorm.DB
}

func NewPackageRepository(db *gorm.DB) PackageRepository {
	return &gormPackageRepository{db: db}
}

func (r *gormPackageRepository) ListPackages(ctx context.Context, activeOnly bool) ([]model.PaymentPackage, error) {
	pkgs := make([]model.PaymentPackage, 0)
	q := r.db.WithContext(ctx).Model(&model.PaymentPackage{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Order("is_recommended DESC").Order("sort_order ASC").Order("id ASC").Find(&pkgs).Error; err != nil {
		return nil, fmt.Errorf("failed to list payment packages: %w", err)
	}
	return pkgs, nil
}

type gormOrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &gormOrderRepository{db: db}
}

// FindByOrderNo 同时匹配商户订单号和微信交易号
func (r *gormOrderRepository) FindByOrderNo(ctx context.Context, orderNo string) (*OrderWithUser, error) {
	var rows []OrderWithUser
	err := r.db.WithContext(ctx).
		Table("payment_orders AS o").
		Select("o.*, u.id AS user_ref_id, u.username AS user_username, u.email AS user_email").
		Joins("LEFT JOIN users AS u ON u.id = o.user_id").
		Where("o.order_no = ? OR o.out_trade_no = ?", orderNo, orderNo).
		Order("o.id ASC").
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query order %s: %w", orderNo, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *gormOrderRepository) ListPaidByUsers(ctx context.Context, userIDs []int64) ([]model.PaymentOrder, error) {
	orders := make([]model.PaymentOrder, 0)
	if len(userIDs) == 0 {
		return orders, nil
	}
	err := r.db.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Where("payment_status = ?", model.OrderStatusPaid).
		Order("payment_time DESC").
		Order("id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list paid orders: %w", err)
	}
	return orders, nil
}

func (r *gormOrderRepository) CountByStatus(ctx context.Context, userID int64) (map[model.OrderStatus]int64, error) {
	var rows []struct {
		PaymentStatus model.OrderStatus
		Total         int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.PaymentOrder{}).
		Select("payment_status, COUNT(*) AS total").
		Where("user_id = ?", userID).
		Group("payment_status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count orders of user %d: %w", userID, err)
	}
	counts := make(map[model.OrderStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.PaymentStatus] = row.Total
	}
	return counts, nil
}

// ListOrphans 返回 user_id 在 users 表中不存在的订单
func (r *gormOrderRepository) ListOrphans(ctx context.Context, limit int) ([]model.PaymentOrder, error) {
	orders := make([]model.PaymentOrder, 0)
	err := r.db.WithContext(ctx).
		Table("payment_orders AS o").
		Select("o.*").
		Joins("LEFT JOIN users AS u ON u.id = o.user_id").
		Where("u.id IS NULL").
		Order("o.id ASC").
		Limit(limit).
		Scan(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orphan orders: %w", err)
	}
	return orders, nil
}
