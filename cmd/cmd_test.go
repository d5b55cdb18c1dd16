package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"paydiag/config"
	"paydiag/core/auth"
	"paydiag/core/check"
	"paydiag/core/probe"
	"paydiag/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuiteName(t *testing.T) {
	assert.Equal(t, "all", suiteName(nil))
	assert.Equal(t, "packages", suiteName([]string{"packages"}))
	assert.Equal(t, "user-and-2-more", suiteName([]string{"user", "order", "invites"}))
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "1.5 KB", formatSize(1536))
	assert.Equal(t, "2.0 MB", formatSize(2<<20))
}

func TestGuardWrites(t *testing.T) {
	defer func(prev *config.Config) { appCfg = prev }(appCfg)

	appCfg = &config.Config{Env: "development"}
	assert.NoError(t, guardWrites(false))

	appCfg = &config.Config{Env: "production"}
	assert.Error(t, guardWrites(false))
	assert.NoError(t, guardWrites(true))
}

func TestWriteCheckOutcomes(t *testing.T) {
	outcomes := []check.Outcome{
		{Check: "schema", Report: &check.Report{Check: "schema", Data: map[string]int{"columns": 0}}},
		{Check: "order", Err: &check.QueryError{Check: "order", Cause: errors.New("boom")}},
	}
	var buf bytes.Buffer
	require.NoError(t, writeCheckOutcomes(&buf, outcomes))

	out := buf.String()
	assert.Contains(t, out, "✅ PASS schema")
	assert.Contains(t, out, "❌ FAIL order")
	assert.Contains(t, out, "通过 1, 失败 1")

	items := checkOutcomesJSON(outcomes)
	require.Len(t, items, 2)
	assert.True(t, items[0].Passed)
	assert.False(t, items[1].Passed)
	assert.Contains(t, items[1].Error, "boom")
}

func TestProbeOutcomesJSON(t *testing.T) {
	outcomes := []probe.Outcome{
		{Scenario: "health", Result: probe.Result{Scenario: "health", StatusCode: 200, ExpectedStatus: 200, Classification: probe.ClassOK, Passed: true}},
		{Scenario: "orders", Result: probe.Result{Scenario: "orders", StatusCode: 401, ExpectedStatus: 200, Classification: probe.ClassUnauthorized}},
		{Scenario: "admin-packages", Err: probe.ErrMissingCredential},
	}
	items := probeOutcomesJSON(outcomes)
	require.Len(t, items, 3)

	assert.True(t, items[0].Passed)
	assert.Empty(t, items[0].Error)

	assert.False(t, items[1].Passed)
	require.NotNil(t, items[1].Result)
	assert.Contains(t, items[1].Error, "401")

	assert.True(t, items[2].Skipped)
	assert.Nil(t, items[2].Result)

	var buf bytes.Buffer
	require.NoError(t, writeProbeOutcomes(&buf, outcomes))
	assert.Contains(t, buf.String(), "通过 1, 失败 1, 跳过 1")
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "b", "c"))
	assert.Equal(t, "", firstNonEmpty("", ""))
}

func TestPingDatabase_ReportsCause(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := config.ConnectionConfig{Host: "127.0.0.1", Port: 1, Username: "placeholder-user", Password: "placeholder-db-password", Database: "paydiag_test"}
	report := configCheckReport{Database: conn.String(), WechatIssues: []string{}}
	pingDatabase(ctx, conn, &report)

	require.NotNil(t, report.Reachable)
	assert.False(t, *report.Reachable)
	assert.NotEmpty(t, report.ReachableError)
	assert.NotContains(t, report.ReachableError, "placeholder-db-password")

	var buf bytes.Buffer
	require.NoError(t, writeConfigCheck(&buf, report))
	assert.Contains(t, buf.String(), "❌ 数据库无法连接: "+report.ReachableError)

	raw, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"reachableError"`)
}

func TestArchiveReport_SingleBucketCheck(t *testing.T) {
	var (
		mu    sync.Mutex
		heads int
		puts  int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		_, _ = io.Copy(io.Discard, r.Body)
		switch r.Method {
		case http.MethodHead:
			heads++
		case http.MethodPut:
			puts++
			w.Header().Set("ETag", `"placeholder-etag"`)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	defer func(prev *config.Config) { appCfg = prev }(appCfg)
	appCfg = &config.Config{Minio: config.MinioConfig{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		AccessKey: "placeholder-access-key",
		SecretKey: "placeholder-secret-key",
		Bucket:    "paydiag-reports",
		Region:    "us-east-1",
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, archiveReport(ctx, "check", "packages", []checkOutcomeJSON{{Check: "packages", Passed: true}}))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, heads)
	assert.Equal(t, 1, puts)
}

func TestMintedTokensCarryUserRole(t *testing.T) {
	assert.Equal(t, model.RoleUser, tokenMintCmd.Flags().Lookup("role").DefValue)

	defer func(prev *config.Config, uid int64) { appCfg, probeMintUser = prev, uid }(appCfg, probeMintUser)
	appCfg = &config.Config{JWTSecret: "placeholder-jwt-secret-for-tests"}
	probeMintUser = 42

	o, err := probeOptions()
	require.NoError(t, err)
	claims, _, err := auth.Decode(o.BearerToken)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, model.RoleUser, claims.Role)
}
