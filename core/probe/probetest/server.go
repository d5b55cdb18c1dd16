// Package probetest 提供一个进程内的目标服务，实现探测场景涉及的接口，供测试使用。
package probetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"paydiag/core/auth"
	"paydiag/model"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type session struct {
	userID int64
	admin  bool
}

// CreditRequest 服务端收到的扣费请求
type CreditRequest struct {
	ModelName    string `json:"modelName"`
	QuestionType string `json:"questionType"`
	OperationID  string `json:"operationId"`
}

// Package 目录中的一个套餐
type Package struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Amount      float64 `json:"amount"`
	Points      int64   `json:"points"`
	BonusPoints int64   `json:"bonusPoints"`
	IsActive    bool    `json:"isActive"`
}

type Server struct {
	*httptest.Server

	mu       sync.Mutex
	sessions map[string]session
	tokens   *auth.TokenIssuer
	points   map[int64]int64
	prices   map[string]int64
	packages []Package
	credits  []CreditRequest
	healthy  bool
}

type Option func(*Server)

// WithTokenIssuer 用于校验 bearer token，未设置时所有 token 都被拒绝
func WithTokenIssuer(ti *auth.TokenIssuer) Option {
	return func(s *Server) { s.tokens = ti }
}

func New(opts ...Option) *Server {
	s := &Server{
		sessions: make(map[string]session),
		points:   make(map[int64]int64),
		prices:   make(map[string]int64),
		healthy:  true,
		packages: []Package{
			{ID: 2, Name: "Pro", Amount: 29.9, Points: 300, BonusPoints: 30, IsActive: true},
			{ID: 1, Name: "Basic", Amount: 9.9, Points: 100, IsActive: true},
		},
	}
	for _, o := range opts {
		o(s)
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/payment/packages", s.handlePackages).Methods(http.MethodGet)
	r.HandleFunc("/api/payment/orders", s.requireSession(s.handleOrders)).Methods(http.MethodGet)
	r.HandleFunc("/api/invite/{kind:stats|registrations|recharges}", s.requireSession(s.handleInvite)).Methods(http.MethodGet)
	r.HandleFunc("/api/client/credits/check-and-deduct", s.handleCredits).Methods(http.MethodPost)
	r.HandleFunc("/api/admin/payment-packages", s.requireSession(s.handleAdminPackages)).Methods(http.MethodGet)
	return r
}

func (s *Server) AddSession(id string, userID int64, admin bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = session{userID: userID, admin: admin}
}

func (s *Server) SetPoints(userID, points int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points[userID] = points
}

func (s *Server) Points(userID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.points[userID]
}

func (s *Server) SetPrice(modelName, questionType string, cost int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[modelName+"|"+questionType] = cost
}

func (s *Server) SetHealthy(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthy = ok
}

// CreditRequests 返回已收到的扣费请求副本
func (s *Server) CreditRequests() []CreditRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CreditRequest(nil), s.credits...)
}

type ctxHandler func(w http.ResponseWriter, r *http.Request, sess session)

func (s *Server) requireSession(next ctxHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.authenticate(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"success": false, "error": "unauthorized"})
			return
		}
		next(w, r, sess)
	}
}

// authenticate X-Session-Id 优先，其次 bearer token
func (s *Server) authenticate(r *http.Request) (session, bool) {
	if id := r.Header.Get("X-Session-Id"); id != "" {
		s.mu.Lock()
		defer s.mu.Unlock()
		sess, ok := s.sessions[id]
		return sess, ok
	}
	token, err := auth.ExtractBearer(r.Header.Get("Authorization"))
	if err != nil || s.tokens == nil {
		return session{}, false
	}
	claims, err := s.tokens.Inspect(token)
	if err != nil {
		return session{}, false
	}
	return session{userID: claims.UserID, admin: claims.Role == model.RoleAdmin}, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	healthy := s.healthy
	s.mu.Unlock()
	if !healthy {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "database": "down"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "timestamp": time.Now().UTC().Format(time.RFC3339)})
}

func (s *Server) handlePackages(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	pkgs := append([]Package(nil), s.packages...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": pkgs})
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request, sess session) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    map[string]interface{}{"orders": []interface{}{}, "total": 0, "userId": sess.userID},
	})
}

func (s *Server) handleInvite(w http.ResponseWriter, r *http.Request, sess session) {
	q := r.URL.Query()
	userID := sess.userID
	if v := q.Get("userId"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "invalid userId"})
			return
		}
		userID = n
	}
	var data interface{}
	switch mux.Vars(r)["kind"] {
	case "stats":
		data = map[string]interface{}{"userId": userID, "totalInvites": 0, "totalRecharge": 0}
	default:
		data = map[string]interface{}{"userId": userID, "items": []interface{}{}, "page": q.Get("page"), "limit": q.Get("limit")}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": data})
}

func (s *Server) handleCredits(w http.ResponseWriter, r *http.Request) {
	var req CreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "message": "invalid body"})
		return
	}
	s.mu.Lock()
	s.credits = append(s.credits, req)
	s.mu.Unlock()

	token, err := auth.ExtractBearer(r.Header.Get("Authorization"))
	if err != nil || s.tokens == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"success": false, "message": "missing token"})
		return
	}
	claims, err := s.tokens.Inspect(token)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"success": false, "message": "invalid token"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cost, ok := s.prices[req.ModelName+"|"+req.QuestionType]
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "message": "unknown model pricing"})
		return
	}
	current := s.points[claims.UserID]
	if current < cost {
		writeJSON(w, http.StatusPaymentRequired, map[string]interface{}{"success": false, "currentPoints": current, "message": "insufficient points"})
		return
	}
	s.points[claims.UserID] = current - cost
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"currentPoints": current,
		"newBalance":    current - cost,
		"transactionId": uuid.NewString(),
	})
}

func (s *Server) handleAdminPackages(w http.ResponseWriter, r *http.Request, sess session) {
	if !sess.admin {
		writeJSON(w, http.StatusForbidden, map[string]interface{}{"success": false, "error": "forbidden"})
		return
	}
	s.handlePackages(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
