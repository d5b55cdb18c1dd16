package check

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"paydiag/db"
	"paydiag/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type mockConnector struct {
	gdb      *gorm.DB
	err      error
	acquired int
	released int
}

func (m *mockConnector) Acquire(ctx context.Context) (*gorm.DB, func() error, error) {
	if m.err != nil {
		return nil, nil, m.err
	}
	m.acquired++
	return m.gdb, func() error {
		m.released++
		return nil
	}, nil
}

func newMockRunner(t *testing.T, opts ...Option) (*Runner, *mockConnector, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := db.OpenConn(sqlDB, db.Options{SkipVersionCheck: true})
	require.NoError(t, err)
	conn := &mockConnector{gdb: gdb}
	return NewRunner(conn, opts...), conn, mock
}

type pkgRow struct {
	id          int64
	name        string
	amount      string
	points      int64
	bonus       int64
	active      bool
	recommended bool
	sort        int
}

func packageRows(rows ...pkgRow) *sqlmock.Rows {
	out := sqlmock.NewRows([]string{"id", "name", "amount", "points", "bonus_points", "is_active", "is_recommended", "sort_order", "label"})
	for _, r := range rows {
		out.AddRow(r.id, r.name, r.amount, r.points, r.bonus, r.active, r.recommended, r.sort, nil)
	}
	return out
}

var catalog = []pkgRow{
	{id: 1, name: "Basic", amount: "9.90", points: 100, bonus: 0, active: true, recommended: false, sort: 1},
	{id: 2, name: "Pro", amount: "29.90", points: 300, bonus: 30, active: true, recommended: true, sort: 2},
	{id: 3, name: "Plus", amount: "19.90", points: 200, bonus: 10, active: true, recommended: false, sort: 1},
	{id: 5, name: "Team", amount: "99.00", points: 1000, bonus: 200, active: true, recommended: false, sort: 3},
	{id: 9, name: "Max", amount: "49.90", points: 500, bonus: 80, active: true, recommended: true, sort: 2},
	{id: 4, name: "Retired", amount: "1.00", points: 10, bonus: 0, active: false, recommended: true, sort: 0},
}

func packageIDs(t *testing.T, rep *Report) []int64 {
	t.Helper()
	data, ok := rep.Data.(*PackagesReport)
	require.True(t, ok)
	ids := make([]int64, 0, len(data.Packages))
	for _, p := range data.Packages {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestPackages_ActiveOnlyExcludesInactive(t *testing.T) {
	runner, _, mock := newMockRunner(t)
	mock.ExpectQuery("FROM `payment_packages` WHERE is_active = \\?").
		WithArgs(true).
		WillReturnRows(packageRows(catalog...))

	rep, err := runner.Run(context.Background(), "packages", Params{"activeOnly": "true"})
	require.NoError(t, err)
	assert.NotContains(t, packageIDs(t, rep), int64(4))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPackages_AllIncludesInactive(t *testing.T) {
	runner, _, mock := newMockRunner(t)
	mock.ExpectQuery("SELECT \\* FROM `payment_packages` ORDER BY").
		WillReturnRows(packageRows(catalog...))

	rep, err := runner.Run(context.Background(), "packages", Params{"activeOnly": "false"})
	require.NoError(t, err)
	ids := packageIDs(t, rep)
	assert.Contains(t, ids, int64(4))
	assert.Len(t, ids, len(catalog))
}

func TestPackages_OrderingIsDeterministic(t *testing.T) {
	active := catalog[:5]
	perms := [][]int{
		{0, 1, 2, 3, 4},
		{4, 3, 2, 1, 0},
		{2, 0, 4, 1, 3},
		{3, 4, 0, 2, 1},
	}
	for _, perm := range perms {
		runner, _, mock := newMockRunner(t)
		rows := make([]pkgRow, 0, len(perm))
		for _, i := range perm {
			rows = append(rows, active[i])
		}
		mock.ExpectQuery("FROM `payment_packages`").WillReturnRows(packageRows(rows...))

		rep, err := runner.Run(context.Background(), "packages", nil)
		require.NoError(t, err)
		assert.Equal(t, []int64{2, 9, 1, 3, 5}, packageIDs(t, rep), "permutation %v", perm)
	}
}

func TestPackages_TotalPointsIdentity(t *testing.T) {
	runner, _, mock := newMockRunner(t)
	mock.ExpectQuery("FROM `payment_packages`").WillReturnRows(packageRows(catalog...))

	rep, err := runner.Run(context.Background(), "packages", Params{"activeOnly": "false"})
	require.NoError(t, err)
	for _, p := range rep.Data.(*PackagesReport).Packages {
		assert.Equal(t, p.Points+p.BonusPoints, p.TotalPoints, "package %d", p.ID)
	}
}

func TestInvites_NoInviteesIsEmptyNotError(t *testing.T) {
	runner, _, mock := newMockRunner(t)
	mock.ExpectQuery("FROM `users` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email"}).AddRow(12, "lonely", "lonely@example.test"))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `users` WHERE inviter_id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(0))
	mock.ExpectQuery("FROM `users` WHERE inviter_id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rep, err := runner.Run(context.Background(), "invites", Params{"userId": "12"})
	require.NoError(t, err)
	data := rep.Data.(*InvitesReport)
	assert.True(t, data.InviterExists)
	assert.NotNil(t, data.Registrations)
	assert.Empty(t, data.Registrations)
	assert.NotNil(t, data.Recharges)
	assert.Empty(t, data.Recharges)
	assert.Zero(t, data.RechargeAmount)

	raw, err := json.Marshal(rep)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"registrations":[]`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvites_SumsPaidOrders(t *testing.T) {
	runner, _, mock := newMockRunner(t)
	mock.ExpectQuery("FROM `users` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery("SELECT count\\(\\*\\)").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(2))
	mock.ExpectQuery("FROM `users` WHERE inviter_id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "inviter_id"}).AddRow(20, "a", 1).AddRow(21, "b", 1))
	mock.ExpectQuery("FROM `payment_orders` WHERE user_id IN \\(\\?,\\?\\) AND payment_status = \\?").
		WithArgs(int64(20), int64(21), "PAID").
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_no", "user_id", "amount", "points", "bonus_points", "payment_status"}).
			AddRow(100, "O-1", 20, "9.90", 100, 0, "PAID").
			AddRow(101, "O-2", 21, "29.90", 300, 30, "PAID"))

	rep, err := runner.Run(context.Background(), "invites", Params{"userId": "1", "limit": "10"})
	require.NoError(t, err)
	data := rep.Data.(*InvitesReport)
	assert.Equal(t, int64(2), data.Total)
	assert.Len(t, data.Registrations, 2)
	assert.Len(t, data.Recharges, 2)
	assert.InDelta(t, 39.80, data.RechargeAmount, 0.0001)
	assert.Equal(t, int64(430), data.RechargedPoints)
}

func TestOrder_MissingUserFlagged(t *testing.T) {
	runner, _, mock := newMockRunner(t)
	mock.ExpectQuery("FROM payment_orders AS o LEFT JOIN users AS u").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "order_no", "user_id", "package_id", "amount", "points", "bonus_points", "payment_status",
			"user_ref_id", "user_username", "user_email",
		}).AddRow(11, "ORDER_X", 999999, 2, "19.90", 200, 20, "PENDING", nil, nil, nil))

	rep, err := runner.Run(context.Background(), "order", Params{"orderNo": "ORDER_X"})
	require.NoError(t, err)
	data := rep.Data.(*OrderReport)
	assert.True(t, data.Found)
	assert.False(t, data.UserExists)
	assert.False(t, data.Username.IsPresent())
	require.NotEmpty(t, data.Issues)
	assert.Contains(t, data.Issues[0], "999999")

	order, ok := data.Order.Get()
	require.True(t, ok)
	assert.Equal(t, order.Points+order.BonusPoints, order.TotalPoints)
}

func TestOrder_NotFound(t *testing.T) {
	runner, _, mock := newMockRunner(t)
	mock.ExpectQuery("FROM payment_orders AS o").WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rep, err := runner.Run(context.Background(), "order", Params{"orderNo": "ORDER_NONE"})
	require.NoError(t, err)
	data := rep.Data.(*OrderReport)
	assert.False(t, data.Found)
	assert.False(t, data.Order.IsPresent())
}

func TestSeedUser_RoundTripByEmail(t *testing.T) {
	runner, _, mock := newMockRunner(t, WithWrites(true))
	userCols := []string{"id", "username", "email", "password_hash", "inviter_id", "role"}

	mock.ExpectQuery("FROM `users` WHERE email = \\?").WillReturnRows(sqlmock.NewRows(userCols))
	mock.ExpectQuery("FROM `users` WHERE username = \\?").WillReturnRows(sqlmock.NewRows(userCols))
	mock.ExpectQuery("FROM `users` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(3, "inviter", "inviter@example.test", "placeholder-hash", nil, "USER"))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `users`").WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("FROM `users` WHERE email = \\?").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(42, "seed-user", "seed@example.test", "placeholder-hash", 3, "USER"))

	rep, err := runner.Run(context.Background(), "seed-user", Params{
		"username":  "seed-user",
		"email":     "seed@example.test",
		"password":  "placeholder-pass",
		"inviterId": "3",
	})
	require.NoError(t, err)
	data := rep.Data.(*SeedUserReport)
	assert.True(t, data.RoundTrip, "mismatches: %v", data.Mismatches)
	assert.Equal(t, int64(42), data.ReadBack.ID)
	assert.Equal(t, "seed-user", data.ReadBack.Username)
	assert.Equal(t, int64(3), data.ReadBack.InviterID.OrElse(0))
	assert.Equal(t, "*************ass", rep.Params["password"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedUser_DuplicateEmail(t *testing.T) {
	runner, _, mock := newMockRunner(t, WithWrites(true))
	mock.ExpectQuery("FROM `users` WHERE email = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).AddRow(8, "seed@example.test"))

	_, err := runner.Run(context.Background(), "seed-user", Params{
		"username": "seed-user", "email": "seed@example.test", "password": "placeholder-pass",
	})
	var qerr *QueryError
	require.ErrorAs(t, err, &qerr)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestWriteChecksRequireOptIn(t *testing.T) {
	runner, conn, _ := newMockRunner(t)

	_, err := runner.Run(context.Background(), "reset-password", Params{"email": "a@example.test", "password": "placeholder-pass"})
	assert.ErrorIs(t, err, ErrWritesDisabled)
	assert.Zero(t, conn.acquired)

	for _, c := range runner.Checks(false) {
		assert.False(t, c.Write, c.Name)
	}
}

func TestResetPassword_UnknownUserChangesNothing(t *testing.T) {
	runner, _, mock := newMockRunner(t, WithWrites(true))
	mock.ExpectQuery("FROM `users` WHERE email = \\?").WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rep, err := runner.Run(context.Background(), "reset-password", Params{"email": "ghost@example.test", "password": "placeholder-pass"})
	require.NoError(t, err)
	data := rep.Data.(*ResetPasswordReport)
	assert.False(t, data.Found)
	assert.Zero(t, data.RowsAffected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnknownCheck(t *testing.T) {
	runner, conn, _ := newMockRunner(t)
	_, err := runner.Run(context.Background(), "no-such-check", nil)
	assert.ErrorIs(t, err, ErrUnknownCheck)
	assert.Zero(t, conn.acquired)
}

func TestInvalidParamsIsQueryError(t *testing.T) {
	runner, conn, _ := newMockRunner(t)

	_, err := runner.Run(context.Background(), "user", Params{"id": "1", "email": "x@example.test"})
	var qerr *QueryError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, "user", qerr.Check)
	assert.ErrorIs(t, err, ErrInvalidParams)
	assert.Equal(t, 1, conn.released)
}

func TestRunAll_ContinuesAfterFailureAndReleasesOnce(t *testing.T) {
	boom := errors.New("lost connection")
	runner, conn, mock := newMockRunner(t, WithChecks(
		Check{Name: "fails", Run: func(ctx context.Context, _ *repository.Set, _ Params) (interface{}, error) {
			return nil, boom
		}},
		Check{Name: "panics", Run: func(ctx context.Context, _ *repository.Set, _ Params) (interface{}, error) {
			panic("nil map write")
		}},
	))
	mock.ExpectQuery("FROM `model_point_configs`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "model_name", "question_type", "cost", "is_active"}).AddRow(1, "m", "q", 3, true))

	outcomes, err := runner.RunAll(context.Background(), []string{"fails", "panics", "model-pricing"}, nil)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	assert.ErrorIs(t, outcomes[0].Err, boom)
	var qerr *QueryError
	require.ErrorAs(t, outcomes[1].Err, &qerr)
	assert.Contains(t, qerr.Error(), "panic")
	assert.True(t, outcomes[2].Passed())

	assert.Equal(t, 1, conn.acquired)
	assert.Equal(t, 1, conn.released)
}

func TestRunAll_AcquireFailure(t *testing.T) {
	conn := &mockConnector{err: errors.New("connection refused")}
	runner := NewRunner(conn)

	_, err := runner.RunAll(context.Background(), nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Zero(t, conn.released)
}

func TestRunAll_CancelledContext(t *testing.T) {
	runner, conn, _ := newMockRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes, err := runner.RunAll(ctx, []string{"packages", "model-pricing"}, nil)
	require.NoError(t, err)
	for _, o := range outcomes {
		assert.ErrorIs(t, o.Err, context.Canceled)
	}
	assert.Equal(t, 1, conn.released)
}

func TestResolve_AllExcludesWrites(t *testing.T) {
	runner := NewRunner(&mockConnector{}, WithWrites(true))
	checks, err := runner.Resolve([]string{"all"})
	require.NoError(t, err)
	names := make([]string, 0, len(checks))
	for _, c := range checks {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"schema", "packages", "user", "invites", "order", "orphan-orders", "model-pricing"}, names)
}

func TestReport_WriteText(t *testing.T) {
	rep := &Report{
		Check:  "schema",
		Params: Params{"table": "users"},
		Data:   &SchemaReport{Name: "users", Exists: false, Columns: []repository.Column{}},
	}
	var buf bytes.Buffer
	require.NoError(t, rep.WriteText(&buf))
	assert.Contains(t, buf.String(), "== schema (table=users)")
	assert.Contains(t, buf.String(), "does not exist")
}

func TestRunner_Schema(t *testing.T) {
	runner, _, mock := newMockRunner(t)
	mock.ExpectQuery("FROM INFORMATION_SCHEMA.COLUMNS").
		WithArgs("payment_orders").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "column_type", "is_nullable", "column_key", "column_default"}).
			AddRow("id", "bigint", "NO", "PRI", nil).
			AddRow("order_no", "varchar(64)", "NO", "UNI", nil).
			AddRow("payment_status", "varchar(16)", "NO", "", "PENDING"))

	rep, err := runner.Run(context.Background(), "schema", Params{"table": "payment_orders"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	data, ok := rep.Data.(*SchemaReport)
	require.True(t, ok)
	assert.Equal(t, "payment_orders", data.Name)
	assert.True(t, data.Exists)
	require.Len(t, data.Columns, 3)

	var tab Tabular = data
	header, rows := tab.Table()
	assert.Equal(t, []string{"COLUMN", "TYPE", "NULL", "KEY", "DEFAULT"}, header)
	assert.Equal(t, []string{"payment_status", "varchar(16)", "NO", "-", "PENDING"}, rows[2])

	var buf bytes.Buffer
	require.NoError(t, rep.WriteText(&buf))
	assert.Contains(t, buf.String(), "table payment_orders: 3 columns")

	raw, err := json.Marshal(rep)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"table":"payment_orders"`)
}

func TestQueryError_RedactsPassword(t *testing.T) {
	err := &QueryError{Check: "reset-password", Params: Params{"email": "a@example.test", "password": "placeholder-pass"}, Cause: errors.New("x")}
	assert.NotContains(t, err.Error(), "placeholder-pass")
	assert.Contains(t, err.Error(), "email=a@example.test")
}

func TestParseParams(t *testing.T) {
	p, err := ParseParams([]string{"userId=7", "page=2", "label=a=b"})
	require.NoError(t, err)
	assert.Equal(t, Params{"userId": "7", "page": "2", "label": "a=b"}, p)

	_, err = ParseParams([]string{"novalue"})
	assert.ErrorIs(t, err, ErrInvalidParams)
}
