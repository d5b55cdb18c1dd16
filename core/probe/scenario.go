package probe

import "net/http"

// AuthMode 场景发送的凭据
type AuthMode int

const (
	AuthNone AuthMode = iota
	// AuthSession X-Session-Id，没有 session 时退回 bearer token
	AuthSession
	// AuthInvalidSession 随机生成、格式合法但未注册的 session
	AuthInvalidSession
	AuthAdminSession
	AuthBearer
)

// Shape 2xx 响应体需要满足的最小形状
type Shape int

const (
	ShapeAny Shape = iota
	ShapeHealth
	ShapeList
	ShapeObject
	ShapeCredit
)

type Scenario struct {
	Name        string
	Description string
	Method      string
	Path        string
	Auth        AuthMode
	// InviteQuery 追加 userId、page、limit 查询参数
	InviteQuery bool
	// CreditBody 发送 {modelName, questionType, operationId}
	CreditBody bool
	// Mutating 会修改目标服务数据，不参与 all
	Mutating   bool
	WantStatus int
	Shape      Shape
}

const (
	pathHealth   = "/health"
	pathPackages = "/api/payment/packages"
	pathOrders   = "/api/payment/orders"
	pathInvite   = "/api/invite/"
	pathCredits  = "/api/client/credits/check-and-deduct"
	pathAdmin    = "/api/admin/payment-packages"
)

// Scenarios 按展示顺序返回全部场景
func Scenarios() []Scenario {
	return []Scenario{
		{Name: "health", Description: "service liveness", Method: http.MethodGet, Path: pathHealth, WantStatus: http.StatusOK, Shape: ShapeHealth},
		{Name: "packages", Description: "public package catalog", Method: http.MethodGet, Path: pathPackages, WantStatus: http.StatusOK, Shape: ShapeList},
		{Name: "orders", Description: "order list with a valid session", Method: http.MethodGet, Path: pathOrders, Auth: AuthSession, WantStatus: http.StatusOK, Shape: ShapeObject},
		{Name: "orders-unauthenticated", Description: "order list without a session is rejected", Method: http.MethodGet, Path: pathOrders, WantStatus: http.StatusUnauthorized},
		{Name: "orders-invalid-session", Description: "order list with an unregistered session is rejected", Method: http.MethodGet, Path: pathOrders, Auth: AuthInvalidSession, WantStatus: http.StatusUnauthorized},
		{Name: "invite-stats", Description: "invite statistics", Method: http.MethodGet, Path: pathInvite + "stats", Auth: AuthSession, InviteQuery: true, WantStatus: http.StatusOK, Shape: ShapeObject},
		{Name: "invite-registrations", Description: "users registered through invites", Method: http.MethodGet, Path: pathInvite + "registrations", Auth: AuthSession, InviteQuery: true, WantStatus: http.StatusOK, Shape: ShapeObject},
		{Name: "invite-recharges", Description: "recharges by invited users", Method: http.MethodGet, Path: pathInvite + "recharges", Auth: AuthSession, InviteQuery: true, WantStatus: http.StatusOK, Shape: ShapeObject},
		{Name: "credits-deduct", Description: "check and deduct credits for a model call", Method: http.MethodPost, Path: pathCredits, Auth: AuthBearer, CreditBody: true, Mutating: true, WantStatus: http.StatusOK, Shape: ShapeCredit},
		{Name: "credits-unauthenticated", Description: "credit deduction without a token is rejected", Method: http.MethodPost, Path: pathCredits, CreditBody: true, WantStatus: http.StatusUnauthorized},
		{Name: "admin-packages", Description: "admin package list with an admin session", Method: http.MethodGet, Path: pathAdmin, Auth: AuthAdminSession, WantStatus: http.StatusOK, Shape: ShapeObject},
		{Name: "admin-packages-forbidden", Description: "admin package list with a regular session is forbidden", Method: http.MethodGet, Path: pathAdmin, Auth: AuthSession, WantStatus: http.StatusForbidden},
	}
}

// Lookup 按名字查找场景
func Lookup(name string) (Scenario, bool) {
	for _, s := range Scenarios() {
		if s.Name == name {
			return s, true
		}
	}
	return Scenario{}, false
}
