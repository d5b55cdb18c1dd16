package check

import (
	"context"
	"fmt"
	"strconv"

	"paydiag/core/opt"
	"paydiag/model"
	"paydiag/repository"
)

// OrderReport 订单及其用户。用户缺失时 UserExists=false，不视为错误
type OrderReport struct {
	OrderNo    string                        `json:"orderNo"`
	Found      bool                          `json:"found"`
	Order      opt.Optional[model.OrderView] `json:"order"`
	UserExists bool                          `json:"userExists"`
	Username   opt.Optional[string]          `json:"username"`
	Email      opt.Optional[string]          `json:"email"`
	Issues     []string                      `json:"issues"`
}

func (r *OrderReport) Summary() []string {
	o, ok := r.Order.Get()
	if !ok {
		return []string{fmt.Sprintf("order %s not found", r.OrderNo)}
	}
	lines := []string{
		fmt.Sprintf("order #%d %s status=%s amount=%.2f points=%d (+%d bonus, total %d)",
			o.ID, o.OrderNo, o.PaymentStatus, o.Amount, o.Points, o.BonusPoints, o.TotalPoints),
	}
	if r.UserExists {
		lines = append(lines, fmt.Sprintf("user #%d %s <%s>", o.UserID, r.Username.OrElse("-"), r.Email.OrElse("-")))
	}
	for _, issue := range r.Issues {
		lines = append(lines, "issue: "+issue)
	}
	return lines
}

func (r *OrderReport) Table() ([]string, [][]string) {
	return nil, nil
}

func runOrder(ctx context.Context, repos *repository.Set, p Params) (interface{}, error) {
	orderNo, err := p.Require("orderNo")
	if err != nil {
		return nil, err
	}
	row, err := repos.Orders.FindByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	report := &OrderReport{OrderNo: orderNo, Issues: []string{}}
	if row == nil {
		return report, nil
	}

	report.Found = true
	report.Order = opt.Some(model.ToOrderView(row.PaymentOrder))
	report.UserExists = row.UserRefID != nil
	report.Username = opt.FromPtr(row.UserUsername)
	report.Email = opt.FromPtr(row.UserEmail)
	report.Issues = orderIssues(row)
	return report, nil
}

func orderIssues(row *repository.OrderWithUser) []string {
	issues := []string{}
	if row.UserRefID == nil {
		issues = append(issues, fmt.Sprintf("user #%d referenced by the order does not exist", row.UserID))
	}
	if row.PaymentStatus == model.OrderStatusPaid && row.PaymentTime == nil {
		issues = append(issues, "order is PAID but has no payment time")
	}
	if row.PaymentStatus != model.OrderStatusPaid && row.PaymentTime != nil {
		issues = append(issues, fmt.Sprintf("order is %s but has a payment time", row.PaymentStatus))
	}
	if row.PackageID == nil {
		issues = append(issues, "order has no package")
	}
	return issues
}

type OrphanOrdersReport struct {
	Limit  int               `json:"limit"`
	Count  int               `json:"count"`
	Orders []model.OrderView `json:"orders"`
}

func (r *OrphanOrdersReport) Summary() []string {
	if r.Count == 0 {
		return []string{"every order references an existing user"}
	}
	return []string{fmt.Sprintf("%d orders reference missing users (limit %d)", r.Count, r.Limit)}
}

func (r *OrphanOrdersReport) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(r.Orders))
	for _, o := range r.Orders {
		rows = append(rows, []string{strconv.FormatInt(o.ID, 10), o.OrderNo, strconv.FormatInt(o.UserID, 10), string(o.PaymentStatus), cell(o.Amount), cell(o.CreatedAt)})
	}
	return []string{"ID", "ORDER NO", "USER ID", "STATUS", "AMOUNT", "CREATED AT"}, rows
}

func runOrphanOrders(ctx context.Context, repos *repository.Set, p Params) (interface{}, error) {
	limit, err := p.IntIn("limit", 50, 1, 1000)
	if err != nil {
		return nil, err
	}
	orders, err := repos.Orders.ListOrphans(ctx, limit)
	if err != nil {
		return nil, err
	}
	views := make([]model.OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, model.ToOrderView(o))
	}
	return &OrphanOrdersReport{Limit: limit, Count: len(views), Orders: views}, nil
}
