package check

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"paydiag/core/auth"
	"paydiag/core/opt"
	"paydiag/model"
	"paydiag/repository"

	"github.com/shopspring/decimal"
)

// findUser 按 id、username、email 中恰好一个查找
func findUser(ctx context.Context, users repository.UserRepository, p Params) (*model.User, string, error) {
	id, hasID, err := p.Int64("id")
	if err != nil {
		return nil, "", err
	}
	username, email := p.String("username"), p.String("email")

	given := 0
	for _, ok := range []bool{hasID, username != "", email != ""} {
		if ok {
			given++
		}
	}
	if given != 1 {
		return nil, "", fmt.Errorf("%w: exactly one of id, username, email is required", ErrInvalidParams)
	}

	switch {
	case hasID:
		u, err := users.GetUserByID(ctx, id)
		return u, "id=" + strconv.FormatInt(id, 10), err
	case username != "":
		u, err := users.GetUserByUsername(ctx, username)
		return u, "username=" + username, err
	default:
		u, err := users.GetUserByEmail(ctx, email)
		return u, "email=" + email, err
	}
}

type UserReport struct {
	Lookup       string                       `json:"lookup"`
	Found        bool                         `json:"found"`
	User         opt.Optional[model.UserView] `json:"user"`
	HasConfig    bool                         `json:"hasConfig"`
	InviteeCount int64                        `json:"inviteeCount"`
	Orders       map[model.OrderStatus]int64  `json:"orders"`
}

func (r *UserReport) Summary() []string {
	u, ok := r.User.Get()
	if !ok {
		return []string{fmt.Sprintf("no user matches %s", r.Lookup)}
	}
	lines := []string{
		fmt.Sprintf("user #%d %s <%s> role=%s points=%d", u.ID, u.Username, u.Email, u.Role, u.Points),
		fmt.Sprintf("has password: %s, has config: %s, invitees: %d", yesNo(u.HasPassword), yesNo(r.HasConfig), r.InviteeCount),
	}
	if inviter, ok := u.InviterID.Get(); ok {
		lines = append(lines, fmt.Sprintf("invited by user #%d", inviter))
	}
	return lines
}

func (r *UserReport) Table() ([]string, [][]string) {
	if !r.Found {
		return nil, nil
	}
	rows := make([][]string, 0, len(model.OrderStatuses))
	for _, s := range model.OrderStatuses {
		rows = append(rows, []string{string(s), strconv.FormatInt(r.Orders[s], 10)})
	}
	return []string{"ORDER STATUS", "COUNT"}, rows
}

func runUser(ctx context.Context, repos *repository.Set, p Params) (interface{}, error) {
	user, lookup, err := findUser(ctx, repos.Users, p)
	if err != nil {
		return nil, err
	}
	report := &UserReport{Lookup: lookup, Orders: map[model.OrderStatus]int64{}}
	if user == nil {
		return report, nil
	}
	report.Found = true
	report.User = opt.Some(model.ToUserView(*user))

	if report.HasConfig, err = repos.Users.HasConfig(ctx, user.ID); err != nil {
		return nil, err
	}
	if report.InviteeCount, err = repos.Users.CountInvitees(ctx, user.ID); err != nil {
		return nil, err
	}
	if report.Orders, err = repos.Orders.CountByStatus(ctx, user.ID); err != nil {
		return nil, err
	}
	return report, nil
}

// InvitesReport 邀请关系：registrations 为被邀请用户，recharges 为这些用户的已支付订单
type InvitesReport struct {
	UserID          int64             `json:"userId"`
	InviterExists   bool              `json:"inviterExists"`
	Page            int               `json:"page"`
	Limit           int               `json:"limit"`
	Total           int64             `json:"total"`
	Registrations   []model.UserView  `json:"registrations"`
	Recharges       []model.OrderView `json:"recharges"`
	RechargeAmount  float64           `json:"rechargeAmount"`
	RechargedPoints int64             `json:"rechargedPoints"`
}

func (r *InvitesReport) Summary() []string {
	lines := []string{}
	if !r.InviterExists {
		lines = append(lines, fmt.Sprintf("user #%d does not exist", r.UserID))
	}
	return append(lines,
		fmt.Sprintf("%d invited users (page %d, showing %d)", r.Total, r.Page, len(r.Registrations)),
		fmt.Sprintf("%d paid orders, amount %.2f, points %d", len(r.Recharges), r.RechargeAmount, r.RechargedPoints),
	)
}

func (r *InvitesReport) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(r.Registrations))
	for _, u := range r.Registrations {
		rows = append(rows, []string{strconv.FormatInt(u.ID, 10), u.Username, u.Email, cell(u.InvitedAt.OrElse(time.Time{})), cell(u.CreatedAt)})
	}
	return []string{"ID", "USERNAME", "EMAIL", "INVITED AT", "CREATED AT"}, rows
}

func runInvites(ctx context.Context, repos *repository.Set, p Params) (interface{}, error) {
	userID, err := p.RequireInt64("userId")
	if err != nil {
		return nil, err
	}
	page, err := p.IntIn("page", 1, 1, 1<<20)
	if err != nil {
		return nil, err
	}
	limit, err := p.IntIn("limit", 20, 1, 100)
	if err != nil {
		return nil, err
	}

	report := &InvitesReport{
		UserID:        userID,
		Page:          page,
		Limit:         limit,
		Registrations: []model.UserView{},
		Recharges:     []model.OrderView{},
	}

	inviter, err := repos.Users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	report.InviterExists = inviter != nil

	if report.Total, err = repos.Users.CountInvitees(ctx, userID); err != nil {
		return nil, err
	}
	invitees, err := repos.Users.ListInvitees(ctx, userID, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(invitees))
	for _, u := range invitees {
		report.Registrations = append(report.Registrations, model.ToUserView(u))
		ids = append(ids, u.ID)
	}

	orders, err := repos.Orders.ListPaidByUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	sum := decimal.Zero
	for _, o := range orders {
		report.Recharges = append(report.Recharges, model.ToOrderView(o))
		sum = sum.Add(o.Amount)
		report.RechargedPoints += o.TotalPoints()
	}
	report.RechargeAmount = sum.InexactFloat64()
	return report, nil
}

// SeedUserReport 写入后按 email 读回，对比 id、username、inviterId
type SeedUserReport struct {
	Created    model.UserView `json:"created"`
	ReadBack   model.UserView `json:"readBack"`
	RoundTrip  bool           `json:"roundTrip"`
	Mismatches []string       `json:"mismatches"`
}

func (r *SeedUserReport) Summary() []string {
	lines := []string{fmt.Sprintf("created user #%d %s <%s>", r.Created.ID, r.Created.Username, r.Created.Email)}
	if r.RoundTrip {
		return append(lines, "read back by email: identical id, username, inviterId")
	}
	for _, m := range r.Mismatches {
		lines = append(lines, "mismatch: "+m)
	}
	return lines
}

func (r *SeedUserReport) Table() ([]string, [][]string) {
	return nil, nil
}

func runSeedUser(ctx context.Context, repos *repository.Set, p Params) (interface{}, error) {
	username, err := p.Require("username")
	if err != nil {
		return nil, err
	}
	email, err := p.Require("email")
	if err != nil {
		return nil, err
	}
	password, err := p.Require("password")
	if err != nil {
		return nil, err
	}
	inviterID, hasInviter, err := p.Int64("inviterId")
	if err != nil {
		return nil, err
	}

	if existing, err := repos.Users.GetUserByEmail(ctx, email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, fmt.Errorf("%w: email %s is already registered to user #%d", ErrInvalidParams, email, existing.ID)
	}
	if existing, err := repos.Users.GetUserByUsername(ctx, username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, fmt.Errorf("%w: username %s is already taken by user #%d", ErrInvalidParams, username, existing.ID)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleUser,
	}
	if hasInviter {
		inviter, err := repos.Users.GetUserByID(ctx, inviterID)
		if err != nil {
			return nil, err
		}
		if inviter == nil {
			return nil, fmt.Errorf("%w: inviter #%d does not exist", ErrInvalidParams, inviterID)
		}
		now := time.Now()
		user.InviterID = &inviterID
		user.InvitedAt = &now
	}

	if err := repos.Users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	back, err := repos.Users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if back == nil {
		return nil, fmt.Errorf("user %s was created but cannot be read back by email", email)
	}

	report := &SeedUserReport{Created: model.ToUserView(*user), ReadBack: model.ToUserView(*back), Mismatches: []string{}}
	if back.ID != user.ID {
		report.Mismatches = append(report.Mismatches, fmt.Sprintf("id %d != %d", back.ID, user.ID))
	}
	if back.Username != user.Username {
		report.Mismatches = append(report.Mismatches, fmt.Sprintf("username %q != %q", back.Username, user.Username))
	}
	if !sameInviter(back.InviterID, user.InviterID) {
		report.Mismatches = append(report.Mismatches, "inviterId differs")
	}
	report.RoundTrip = len(report.Mismatches) == 0
	return report, nil
}

func sameInviter(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

type ResetPasswordReport struct {
	Lookup       string `json:"lookup"`
	Found        bool   `json:"found"`
	UserID       int64  `json:"userId,omitempty"`
	Username     string `json:"username,omitempty"`
	RowsAffected int64  `json:"rowsAffected"`
	Verified     bool   `json:"verified"`
}

func (r *ResetPasswordReport) Summary() []string {
	if !r.Found {
		return []string{fmt.Sprintf("no user matches %s, nothing changed", r.Lookup)}
	}
	return []string{
		fmt.Sprintf("password of user #%d %s updated, rows affected: %d", r.UserID, r.Username, r.RowsAffected),
		fmt.Sprintf("new hash verified: %s", yesNo(r.Verified)),
	}
}

func (r *ResetPasswordReport) Table() ([]string, [][]string) {
	return nil, nil
}

func runResetPassword(ctx context.Context, repos *repository.Set, p Params) (interface{}, error) {
	password, err := p.Require("password")
	if err != nil {
		return nil, err
	}
	lookup := Params{"username": p["username"], "email": p["email"]}
	user, desc, err := findUser(ctx, repos.Users, lookup)
	if err != nil {
		return nil, err
	}
	report := &ResetPasswordReport{Lookup: desc}
	if user == nil {
		return report, nil
	}
	report.Found = true
	report.UserID = user.ID
	report.Username = user.Username

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if report.RowsAffected, err = repos.Users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return nil, err
	}

	back, err := repos.Users.GetUserByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	report.Verified = back != nil && auth.CheckPasswordHash(password, back.PasswordHash)
	return report, nil
}
