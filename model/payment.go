package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus 支付订单状态
type OrderStatus string

const (
	OrderStatusPending OrderStatus = "PENDING"
	OrderStatusPaid    OrderStatus = "PAID"
	OrderStatusFailed  OrderStatus = "FAILED"
	OrderStatusExpired OrderStatus = "EXPIRED"
)

// OrderStatuses 全部状态，按生命周期顺序
var OrderStatuses = []OrderStatus{OrderStatusPending, OrderStatusPaid, OrderStatusFailed, OrderStatusExpired}

// PaymentPackage 充值套餐，由管理后台维护
type PaymentPackage struct {
	ID            int64           `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	Name          string          `gorm:"column:name;size:100;not null" json:"name"`
	Amount        decimal.Decimal `gorm:"column:amount;type:decimal(10,2);not null" json:"amount"`
	Points        int64           `gorm:"column:points;not null" json:"points"`
	BonusPoints   int64           `gorm:"column:bonus_points;not null;default:0" json:"bonusPoints"`
	IsActive      bool            `gorm:"column:is_active;not null;default:true" json:"isActive"`
	IsRecommended bool            `gorm:"column:is_recommended;not null;default:false" json:"isRecommended"`
	SortOrder     int             `gorm:"column:sort_order;not null;default:0" json:"sortOrder"`
	Label         *string         `gorm:"column:label;size:50" json:"label"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (PaymentPackage) TableName() string {
	return "payment_packages"
}

// TotalPoints 可到账总积分 = points + bonusPoints
func (p PaymentPackage) TotalPoints() int64 {
	return p.Points + p.BonusPoints
}

// PaymentOrder 支付订单。OutTradeNo 为微信支付侧的交易号
type PaymentOrder struct {
	ID            int64           `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	OrderNo       string          `gorm:"column:order_no;size:64;uniqueIndex;not null" json:"orderNo"`
	OutTradeNo    *string         `gorm:"column:out_trade_no;size:64;index" json:"outTradeNo"`
	UserID        int64           `gorm:"column:user_id;index;not null" json:"userId"`
	PackageID     *int64          `gorm:"column:package_id;index" json:"packageId"`
	Amount        decimal.Decimal `gorm:"column:amount;type:decimal(10,2);not null" json:"amount"`
	Points        int64           `gorm:"column:points;not null" json:"points"`
	BonusPoints   int64           `gorm:"column:bonus_points;not null;default:0" json:"bonusPoints"`
	PaymentStatus OrderStatus     `gorm:"column:payment_status;size:20;index;not null" json:"paymentStatus"`
	PaymentTime   *time.Time      `gorm:"column:payment_time" json:"paymentTime"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (PaymentOrder) TableName() string {
	return "payment_orders"
}

func (o PaymentOrder) TotalPoints() int64 {
	return o.Points + o.BonusPoints
}

// ModelPointConfig 按模型和题型计费的积分价目
type ModelPointConfig struct {
	ID           int64     `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	ModelName    string    `gorm:"column:model_name;size:100;not null;index" json:"modelName"`
	QuestionType string    `gorm:"column:question_type;size:50;not null" json:"questionType"`
	Cost         int64     `gorm:"column:cost;not null" json:"cost"`
	IsActive     bool      `gorm:"column:is_active;not null;default:true" json:"isActive"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (ModelPointConfig) TableName() string {
	return "model_point_configs"
}
