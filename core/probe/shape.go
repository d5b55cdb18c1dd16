package probe

import (
	"bytes"
	"encoding/json"

	"paydiag/core/opt"
)

// HealthBody GET /health
type HealthBody struct {
	Status    string               `json:"status"`
	Timestamp opt.Optional[string] `json:"timestamp"`
	Database  opt.Optional[string] `json:"database"`
	Version   opt.Optional[string] `json:"version"`
}

// Envelope 后端统一的 {success, data} 响应
type Envelope struct {
	Success bool                 `json:"success"`
	Data    json.RawMessage      `json:"data"`
	Message opt.Optional[string] `json:"message"`
	Error   opt.Optional[string] `json:"error"`
}

// Items data 为数组时返回元素个数
func (e Envelope) Items() opt.Optional[int] {
	var items []json.RawMessage
	if len(e.Data) == 0 || json.Unmarshal(e.Data, &items) != nil {
		return opt.None[int]()
	}
	return opt.Some(len(items))
}

// HasData data 存在且不为 null
func (e Envelope) HasData() bool {
	d := bytes.TrimSpace(e.Data)
	return len(d) > 0 && !bytes.Equal(d, []byte("null"))
}

// CreditResult POST /api/client/credits/check-and-deduct
type CreditResult struct {
	Success       bool                 `json:"success"`
	CurrentPoints opt.Optional[int64]  `json:"currentPoints"`
	NewBalance    opt.Optional[int64]  `json:"newBalance"`
	TransactionID opt.Optional[string] `json:"transactionId"`
	Message       opt.Optional[string] `json:"message"`
}

// CreditRequest 扣费请求体
type CreditRequest struct {
	ModelName    string `json:"modelName"`
	QuestionType string `json:"questionType"`
	OperationID  string `json:"operationId"`
}

type decoded struct {
	health   opt.Optional[HealthBody]
	envelope opt.Optional[Envelope]
	credit   opt.Optional[CreditResult]
}

func decodeBody(body []byte) decoded {
	var d decoded
	if len(bytes.TrimSpace(body)) == 0 {
		return d
	}
	var h HealthBody
	if json.Unmarshal(body, &h) == nil && h.Status != "" {
		d.health = opt.Some(h)
	}
	var e Envelope
	if json.Unmarshal(body, &e) == nil && (e.Success || e.HasData() || e.Error.IsPresent()) {
		d.envelope = opt.Some(e)
	}
	var c CreditResult
	if json.Unmarshal(body, &c) == nil && (c.NewBalance.IsPresent() || c.TransactionID.IsPresent()) {
		d.credit = opt.Some(c)
	}
	return d
}

// matches 检查最小形状，不做完整 schema 校验
func (d decoded) matches(s Shape) bool {
	switch s {
	case ShapeHealth:
		h, ok := d.health.Get()
		return ok && h.Status == "ok"
	case ShapeList:
		e, ok := d.envelope.Get()
		return ok && e.Success && e.Items().IsPresent()
	case ShapeObject:
		e, ok := d.envelope.Get()
		return ok && e.Success && e.HasData()
	case ShapeCredit:
		c, ok := d.credit.Get()
		return ok && c.Success && c.NewBalance.IsPresent()
	default:
		return true
	}
}
