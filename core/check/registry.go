package check

import (
	"context"

	"paydiag/repository"
)

// Check 一个具名诊断。Run 只能通过 repos 访问数据库
type Check struct {
	Name        string
	Description string
	// Write 为 true 的检查会修改数据，不参与 all
	Write bool
	Run   func(ctx context.Context, repos *repository.Set, p Params) (interface{}, error)
}

// Builtin 按展示顺序返回全部内置检查
func Builtin() []Check {
	return []Check{
		{Name: "schema", Description: "describe the columns of a table (table=)", Run: runSchema},
		{Name: "packages", Description: "payment package inventory (activeOnly=true|false)", Run: runPackages},
		{Name: "user", Description: "look up a user by id=, username= or email=", Run: runUser},
		{Name: "invites", Description: "users invited by userId= and their paid orders (page=, limit=)", Run: runInvites},
		{Name: "order", Description: "inspect an order by orderNo= joined to its user", Run: runOrder},
		{Name: "orphan-orders", Description: "orders whose user no longer exists (limit=)", Run: runOrphanOrders},
		{Name: "model-pricing", Description: "model point pricing table (activeOnly=true|false)", Run: runModelPricing},
		{Name: "seed-user", Description: "create a test user and read it back (username=, email=, password=, inviterId=)", Write: true, Run: runSeedUser},
		{Name: "reset-password", Description: "reset a user's password (username= or email=, password=)", Write: true, Run: runResetPassword},
	}
}
