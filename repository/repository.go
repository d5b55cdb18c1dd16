package repository

import "gorm.io/gorm"

// Set 绑定到同一个连接上的全部仓库
type Set struct {
	Users    UserRepository
	Packages PackageRepository
	Orders   OrderRepository
	Pricing  PricingRepository
	Schema   SchemaRepository
}

func NewSet(db *gorm.DB) *Set {
	return &Set{
		Users:    NewUserRepository(db),
		Packages: NewPackageRepository(db),
		Orders:   NewOrderRepository(db),
		Pricing:  NewPricingRepository(db),
		Schema:   NewSchemaRepository(db),
	}
}
