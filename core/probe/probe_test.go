package probe

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"paydiag/core/auth"
	"paydiag/core/probe/probetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	fakeSession      = "placeholder-session-user"
	fakeAdminSession = "placeholder-session-admin"
	fakeSecret       = "placeholder-jwt-secret-for-tests"
)

func newTarget(t *testing.T) (*probetest.Server, *Prober, *auth.TokenIssuer) {
	t.Helper()
	issuer, err := auth.NewTokenIssuer(fakeSecret, time.Hour)
	require.NoError(t, err)

	srv := probetest.New(probetest.WithTokenIssuer(issuer))
	t.Cleanup(srv.Close)
	srv.AddSession(fakeSession, 7, false)
	srv.AddSession(fakeAdminSession, 1, true)

	p, err := New(srv.URL, 2*time.Second)
	require.NoError(t, err)
	return srv, p, issuer
}

func TestProbe_Health(t *testing.T) {
	_, p, _ := newTarget(t)

	res, err := p.Probe(context.Background(), "health", Options{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, ClassOK, res.Classification)
	assert.True(t, res.Passed)
	h, ok := res.Health.Get()
	require.True(t, ok)
	assert.Equal(t, "ok", h.Status)
	assert.NoError(t, res.Err())
}

func TestProbe_PackagesEnvelope(t *testing.T) {
	_, p, _ := newTarget(t)

	res, err := p.Probe(context.Background(), "packages", Options{})
	require.NoError(t, err)
	assert.True(t, res.Passed)
	env, ok := res.Envelope.Get()
	require.True(t, ok)
	assert.True(t, env.Success)
	assert.Equal(t, 2, env.Items().OrElse(-1))
}

func TestProbe_ProtectedRouteWithoutSession(t *testing.T) {
	_, p, _ := newTarget(t)

	res, err := p.Probe(context.Background(), "orders-unauthenticated", Options{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, ClassUnauthorized, res.Classification)
	assert.True(t, res.Passed)
}

func TestProbe_UnregisteredSessionIs401(t *testing.T) {
	_, p, _ := newTarget(t)

	res, err := p.Probe(context.Background(), "orders-invalid-session", Options{SessionID: fakeSession})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, ClassUnauthorized, res.Classification)
	assert.True(t, res.Passed)
}

func TestProbe_OrdersWithSession(t *testing.T) {
	_, p, _ := newTarget(t)

	res, err := p.Probe(context.Background(), "orders", Options{SessionID: fakeSession})
	require.NoError(t, err)
	assert.Equal(t, ClassOK, res.Classification)
	assert.True(t, res.Passed)
}

func TestProbe_OrdersWithBearerFallback(t *testing.T) {
	_, p, issuer := newTarget(t)
	token, err := issuer.Mint(7, "alice", "USER")
	require.NoError(t, err)

	res, err := p.Probe(context.Background(), "orders", Options{BearerToken: token})
	require.NoError(t, err)
	assert.True(t, res.Passed)
}

func TestProbe_InviteQuery(t *testing.T) {
	_, p, _ := newTarget(t)

	res, err := p.Probe(context.Background(), "invite-registrations", Options{SessionID: fakeSession, UserID: 7, Page: 2, Limit: 5})
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.Contains(t, res.URL, "userId=7")
	assert.Contains(t, res.URL, "page=2")
	assert.Contains(t, res.URL, "limit=5")
}

func TestProbe_AdminForbiddenForRegularSession(t *testing.T) {
	_, p, _ := newTarget(t)

	res, err := p.Probe(context.Background(), "admin-packages-forbidden", Options{SessionID: fakeSession})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.Equal(t, ClassForbidden, res.Classification)
	assert.True(t, res.Passed)

	res, err = p.Probe(context.Background(), "admin-packages", Options{AdminSessionID: fakeAdminSession})
	require.NoError(t, err)
	assert.Equal(t, ClassOK, res.Classification)
	assert.True(t, res.Passed)
}

func TestProbe_CreditsDeduct(t *testing.T) {
	srv, p, issuer := newTarget(t)
	srv.SetPoints(7, 100)
	srv.SetPrice("placeholder-model", "coding", 15)
	token, err := issuer.Mint(7, "alice", "USER")
	require.NoError(t, err)

	res, err := p.Probe(context.Background(), "credits-deduct", Options{
		BearerToken:  token,
		ModelName:    "placeholder-model",
		QuestionType: "coding",
	})
	require.NoError(t, err)
	assert.True(t, res.Passed, res.Body)
	credit, ok := res.Credit.Get()
	require.True(t, ok)
	assert.Equal(t, int64(100), credit.CurrentPoints.OrElse(0))
	assert.Equal(t, int64(85), credit.NewBalance.OrElse(0))
	assert.True(t, credit.TransactionID.IsPresent())
	assert.Equal(t, int64(85), srv.Points(7))

	reqs := srv.CreditRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "placeholder-model", reqs[0].ModelName)
	assert.Equal(t, "coding", reqs[0].QuestionType)
	assert.NotEmpty(t, reqs[0].OperationID)
}

func TestProbe_CreditsInsufficientPoints(t *testing.T) {
	srv, p, issuer := newTarget(t)
	srv.SetPrice("placeholder-model", "coding", 15)
	token, err := issuer.Mint(7, "alice", "USER")
	require.NoError(t, err)

	res, err := p.Probe(context.Background(), "credits-deduct", Options{BearerToken: token, ModelName: "placeholder-model", QuestionType: "coding"})
	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.Equal(t, http.StatusPaymentRequired, res.StatusCode)
	assert.Equal(t, ClassUnexpectedStatus, res.Classification)

	var statusErr *UnexpectedStatusError
	require.ErrorAs(t, res.Err(), &statusErr)
	assert.Equal(t, http.StatusOK, statusErr.Want)
	assert.Equal(t, http.StatusPaymentRequired, statusErr.Got)
}

func TestProbe_CreditsUnauthenticated(t *testing.T) {
	_, p, _ := newTarget(t)

	res, err := p.Probe(context.Background(), "credits-unauthenticated", Options{})
	require.NoError(t, err)
	assert.Equal(t, ClassUnauthorized, res.Classification)
	assert.True(t, res.Passed)
}

func TestProbe_MissingCredential(t *testing.T) {
	_, p, _ := newTarget(t)

	_, err := p.Probe(context.Background(), "admin-packages", Options{SessionID: fakeSession})
	assert.ErrorIs(t, err, ErrMissingCredential)

	_, err = p.Probe(context.Background(), "credits-deduct", Options{BearerToken: "x.y.z"})
	assert.ErrorIs(t, err, ErrMissingOption)
}

func TestProbe_UnknownScenario(t *testing.T) {
	_, p, _ := newTarget(t)
	_, err := p.Probe(context.Background(), "nope", Options{})
	assert.ErrorIs(t, err, ErrUnknownScenario)
}

func TestProbe_UnreachableIsClassifiedNotReturned(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p, err := New(url, time.Second)
	require.NoError(t, err)

	res, err := p.Probe(context.Background(), "health", Options{})
	require.NoError(t, err)
	assert.Equal(t, ClassUnreachable, res.Classification)
	assert.False(t, res.Passed)
	assert.Zero(t, res.StatusCode)

	var unreachable *UnreachableError
	require.ErrorAs(t, res.Err(), &unreachable)
	assert.Equal(t, "health", unreachable.Scenario)
}

func TestProbe_TimeoutIsUnreachable(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	p, err := New(slow.URL, 50*time.Millisecond)
	require.NoError(t, err)

	res, err := p.Probe(context.Background(), "health", Options{})
	require.NoError(t, err)
	assert.Equal(t, ClassUnreachable, res.Classification)
	assert.True(t, errors.Is(res.Cause, context.DeadlineExceeded))
}

func TestProbe_UnhealthyIsServerError(t *testing.T) {
	srv, p, _ := newTarget(t)
	srv.SetHealthy(false)

	res, err := p.Probe(context.Background(), "health", Options{})
	require.NoError(t, err)
	assert.Equal(t, ClassServerError, res.Classification)
	var statusErr *UnexpectedStatusError
	assert.ErrorAs(t, res.Err(), &statusErr)
}

func TestProbe_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>maintenance</html>"))
	}))
	defer srv.Close()

	p, err := New(srv.URL, time.Second)
	require.NoError(t, err)
	res, err := p.Probe(context.Background(), "packages", Options{})
	require.NoError(t, err)
	assert.Equal(t, ClassMalformed, res.Classification)
	assert.False(t, res.Passed)
	assert.ErrorIs(t, res.Err(), ErrMalformedBody)
	assert.False(t, res.Envelope.IsPresent())
}

func TestProbe_BodyCapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("a", MaxBodyBytes+512)))
	}))
	defer srv.Close()

	p, err := New(srv.URL, 2*time.Second)
	require.NoError(t, err)
	res, err := p.Probe(context.Background(), "health", Options{})
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.Len(t, res.Body, MaxBodyBytes)
	assert.Equal(t, ClassMalformed, res.Classification)
	assert.False(t, res.ShapeMatched.IsPresent())
	assert.False(t, res.Passed)
}

func TestProbe_BodyReadFailureKeepsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 声明的长度大于实际写出的字节，连接随后被关闭
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Length", "4096")
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusUnauthorized)
		}
		w.Write([]byte(`{"status":`))
	}))
	defer srv.Close()

	p, err := New(srv.URL, 2*time.Second)
	require.NoError(t, err)

	res, err := p.Probe(context.Background(), "orders-unauthenticated", Options{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, ClassUnauthorized, res.Classification)
	assert.True(t, res.Incomplete)
	assert.False(t, res.ShapeMatched.IsPresent())
	assert.True(t, res.Passed)
	assert.ErrorIs(t, res.Cause, io.ErrUnexpectedEOF)

	res, err = p.Probe(context.Background(), "health", Options{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, ClassMalformed, res.Classification)
	assert.True(t, res.Incomplete)
	assert.False(t, res.Passed)
	assert.ErrorIs(t, res.Err(), ErrMalformedBody)
	assert.ErrorIs(t, res.Err(), io.ErrUnexpectedEOF)
}

func TestRunSuite_AllSkipsMissingCredentials(t *testing.T) {
	_, p, _ := newTarget(t)

	outcomes, err := p.RunSuite(context.Background(), []string{"all"}, Options{SessionID: fakeSession})
	require.NoError(t, err)

	seen := map[string]Outcome{}
	for _, o := range outcomes {
		seen[o.Scenario] = o
	}
	assert.NotContains(t, seen, "credits-deduct")
	assert.True(t, seen["admin-packages"].Skipped())
	for _, name := range []string{"health", "packages", "orders", "orders-unauthenticated", "orders-invalid-session", "invite-stats", "credits-unauthenticated", "admin-packages-forbidden"} {
		assert.True(t, seen[name].Passed(), name)
	}
}

func TestRunSuite_UnknownName(t *testing.T) {
	_, p, _ := newTarget(t)
	_, err := p.RunSuite(context.Background(), []string{"health", "bogus"}, Options{})
	assert.ErrorIs(t, err, ErrUnknownScenario)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		status  int
		shapeOK bool
		want    Classification
	}{
		{200, true, ClassOK},
		{201, false, ClassMalformed},
		{401, false, ClassUnauthorized},
		{403, false, ClassForbidden},
		{404, false, ClassNotFound},
		{500, false, ClassServerError},
		{502, false, ClassServerError},
		{302, false, ClassUnexpectedStatus},
		{429, false, ClassUnexpectedStatus},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.status, tt.shapeOK), "status %d", tt.status)
	}
}

func TestNew_InvalidBaseURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:3000", "ftp://example.test", "http://"} {
		_, err := New(raw, time.Second)
		assert.Error(t, err, raw)
	}
}
