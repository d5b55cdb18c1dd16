package model

import (
	"sort"
	"time"

	"paydiag/core/opt"
)

// PackageView 套餐的对外稳定形状。金额统一转为 float64（元）
type PackageView struct {
	ID            int64                `json:"id"`
	Name          string               `json:"name"`
	Amount        float64              `json:"amount"`
	Points        int64                `json:"points"`
	BonusPoints   int64                `json:"bonusPoints"`
	TotalPoints   int64                `json:"totalPoints"`
	IsActive      bool                 `json:"isActive"`
	IsRecommended bool                 `json:"isRecommended"`
	SortOrder     int                  `json:"sortOrder"`
	Label         opt.Optional[string] `json:"label"`
}

// ToPackageView 纯映射函数，报告和序列化边界共用
func ToPackageView(p PaymentPackage) PackageView {
	return PackageView{
		ID:            p.ID,
		Name:          p.Name,
		Amount:        p.Amount.InexactFloat64(),
		Points:        p.Points,
		BonusPoints:   p.BonusPoints,
		TotalPoints:   p.TotalPoints(),
		IsActive:      p.IsActive,
		IsRecommended: p.IsRecommended,
		SortOrder:     p.SortOrder,
		Label:         opt.FromPtr(p.Label),
	}
}

// SortPackages 推荐优先，其次 sortOrder 升序，最后 id 升序。对任意输入顺序结果唯一
func SortPackages(pkgs []PaymentPackage) {
	sort.SliceStable(pkgs, func(i, j int) bool {
		a, b := pkgs[i], pkgs[j]
		if a.IsRecommended != b.IsRecommended {
			return a.IsRecommended
		}
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		return a.ID < b.ID
	})
}

type OrderView struct {
	ID            int64                   `json:"id"`
	OrderNo       string                  `json:"orderNo"`
	OutTradeNo    opt.Optional[string]    `json:"outTradeNo"`
	UserID        int64                   `json:"userId"`
	PackageID     opt.Optional[int64]     `json:"packageId"`
	Amount        float64                 `json:"amount"`
	Points        int64                   `json:"points"`
	BonusPoints   int64                   `json:"bonusPoints"`
	TotalPoints   int64                   `json:"totalPoints"`
	PaymentStatus OrderStatus             `json:"paymentStatus"`
	PaymentTime   opt.Optional[time.Time] `json:"paymentTime"`
	CreatedAt     time.Time               `json:"createdAt"`
}

func ToOrderView(o PaymentOrder) OrderView {
	return OrderView{
		ID:            o.ID,
		OrderNo:       o.OrderNo,
		OutTradeNo:    opt.FromPtr(o.OutTradeNo),
		UserID:        o.UserID,
		PackageID:     opt.FromPtr(o.PackageID),
		Amount:        o.Amount.InexactFloat64(),
		Points:        o.Points,
		BonusPoints:   o.BonusPoints,
		TotalPoints:   o.TotalPoints(),
		PaymentStatus: o.PaymentStatus,
		PaymentTime:   opt.FromPtr(o.PaymentTime),
		CreatedAt:     o.CreatedAt,
	}
}

// UserView 不包含密码哈希，只暴露是否已设置密码
type UserView struct {
	ID          int64                   `json:"id"`
	Username    string                  `json:"username"`
	Email       string                  `json:"email"`
	Points      int64                   `json:"points"`
	Role        string                  `json:"role"`
	InviterID   opt.Optional[int64]     `json:"inviterId"`
	InvitedAt   opt.Optional[time.Time] `json:"invitedAt"`
	HasPassword bool                    `json:"hasPassword"`
	CreatedAt   time.Time               `json:"createdAt"`
}

func ToUserView(u User) UserView {
	return UserView{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Points:      u.Points,
		Role:        u.Role,
		InviterID:   opt.FromPtr(u.InviterID),
		InvitedAt:   opt.FromPtr(u.InvitedAt),
		HasPassword: u.PasswordHash != "",
		CreatedAt:   u.CreatedAt,
	}
}

type PricingView struct {
	ID           int64  `json:"id"`
	ModelName    string `json:"modelName"`
	QuestionType string `json:"questionType"`
	Cost         int64  `json:"cost"`
	IsActive     bool   `json:"isActive"`
}

func ToPricingView(m ModelPointConfig) PricingView {
	return PricingView{
		ID:           m.ID,
		ModelName:    m.ModelName,
		QuestionType: m.QuestionType,
		Cost:         m.Cost,
		IsActive:     m.IsActive,
	}
}
