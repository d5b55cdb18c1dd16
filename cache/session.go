package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"paydiag/core/opt"

	"github.com/go-redis/redis/v8"
)

// SessionInfo 一个会话键的概况，不包含会话内容本身
type SessionInfo struct {
	SessionID  string                      `json:"sessionId"`
	Key        string                      `json:"key"`
	Exists     bool                        `json:"exists"`
	Type       string                      `json:"type,omitempty"`
	TTL        opt.Optional[time.Duration] `json:"ttl"`
	Persistent bool                        `json:"persistent"`
	Size       int64                       `json:"size"`
	UserID     opt.Optional[int64]         `json:"userId"`
}

// SessionInspector 只读查看后端写入 Redis 的会话
type SessionInspector struct {
	client redis.Cmdable
	prefix string
}

func NewSessionInspector(client redis.Cmdable, prefix string) *SessionInspector {
	return &SessionInspector{client: client, prefix: prefix}
}

// Key 会话在 Redis 中的键名
func (s *SessionInspector) Key(sessionID string) string {
	return s.prefix + sessionID
}

func (s *SessionInspector) Lookup(ctx context.Context, sessionID string) (*SessionInfo, error) {
	if sessionID == "" {
		return nil, errors.New("session id is empty")
	}
	key := s.Key(sessionID)
	info := &SessionInfo{SessionID: sessionID, Key: key}

	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to check session key %s: %w", key, err)
	}
	if n == 0 {
		return info, nil
	}
	info.Exists = true

	if info.Type, err = s.client.Type(ctx, key).Result(); err != nil {
		return nil, fmt.Errorf("failed to get type of %s: %w", key, err)
	}

	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get ttl of %s: %w", key, err)
	}
	// -1 表示永不过期
	if ttl >= 0 {
		info.TTL = opt.Some(ttl)
	} else {
		info.Persistent = true
	}

	switch info.Type {
	case "string":
		raw, err := s.client.Get(ctx, key).Result()
		if err != nil && err != redis.Nil {
			return nil, fmt.Errorf("failed to read session %s: %w", key, err)
		}
		info.Size = int64(len(raw))
		info.UserID = SessionUserID([]byte(raw))
	case "hash":
		if info.Size, err = s.client.HLen(ctx, key).Result(); err != nil {
			return nil, fmt.Errorf("failed to read session %s: %w", key, err)
		}
		v, err := s.client.HGet(ctx, key, "userId").Result()
		if err == nil {
			if id, perr := strconv.ParseInt(v, 10, 64); perr == nil {
				info.UserID = opt.Some(id)
			}
		} else if err != redis.Nil {
			return nil, fmt.Errorf("failed to read session %s: %w", key, err)
		}
	}
	return info, nil
}

// SessionUserID 从 JSON 会话内容中取 userId，兼容数字和字符串两种写法
func SessionUserID(raw []byte) opt.Optional[int64] {
	var payload struct {
		UserID json.RawMessage `json:"userId"`
		User   *struct {
			ID json.RawMessage `json:"id"`
		} `json:"user"`
	}
	if json.Unmarshal(raw, &payload) != nil {
		return opt.None[int64]()
	}
	field := payload.UserID
	if len(field) == 0 && payload.User != nil {
		field = payload.User.ID
	}
	if len(field) == 0 {
		return opt.None[int64]()
	}
	var n int64
	if json.Unmarshal(field, &n) == nil {
		return opt.Some(n)
	}
	var s string
	if json.Unmarshal(field, &s) == nil {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return opt.Some(n)
		}
	}
	return opt.None[int64]()
}
