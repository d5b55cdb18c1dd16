package config

import (
	"fmt"
	"sort"
	"strings"
)

// ConnectionConfig 规范化后的数据库连接描述
type ConnectionConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string
	Params   map[string]string
}

// Addr host:port
func (c ConnectionConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// String 返回脱敏后的展示形式，可直接写入日志
func (c ConnectionConfig) String() string {
	return fmt.Sprintf("mysql://%s:%s@%s/%s", c.Username, Redact(c.Password), c.Addr(), c.Database)
}

// ConfigError 配置缺失或非法，属于致命错误
type ConfigError struct {
	Field  string
	Reason string
	Cause  error
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("config error: %s: %s: %v", e.Field, e.Reason, e.Cause)
	}
	return fmt.Sprintf("config error: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Redact 只保留最后 3 个字符，其余替换为 *
func Redact(s string) string {
	if s == "" {
		return ""
	}
	r := []rune(s)
	if len(r) <= 3 {
		return strings.Repeat("*", len(r))
	}
	return strings.Repeat("*", len(r)-3) + string(r[len(r)-3:])
}

// Redacted 返回用于展示的配置快照，凭据均已脱敏
func (c *Config) Redacted() map[string]string {
	out := map[string]string{
		"env":                  c.Env,
		"source":               c.Source,
		"mysql.host":           c.Database.Host,
		"mysql.port":           fmt.Sprint(c.Database.Port),
		"mysql.username":       c.Database.Username,
		"mysql.password":       Redact(c.Database.Password),
		"mysql.database":       c.Database.Database,
		"jwtSecret":            Redact(c.JWTSecret),
		"wechatPay.appId":      c.WechatPay.AppID,
		"wechatPay.mchId":      Redact(c.WechatPay.MchID),
		"wechatPay.apiV3Key":   Redact(c.WechatPay.APIv3Key),
		"wechatPay.serialNo":   Redact(c.WechatPay.SerialNo),
		"wechatPay.privateKey": c.WechatPay.PrivateKeyPath,
		"wechatPay.notifyUrl":  c.WechatPay.NotifyURL,
		"redis.addr":           c.Redis.Host + ":" + c.Redis.Port,
		"redis.password":       Redact(c.Redis.Password),
		"redis.db":             fmt.Sprint(c.Redis.DB),
		"redis.sessionPrefix":  c.Redis.SessionPrefix,
		"minio.endpoint":       c.Minio.Endpoint,
		"minio.accessKey":      Redact(c.Minio.AccessKey),
		"minio.secretKey":      Redact(c.Minio.SecretKey),
		"minio.bucket":         c.Minio.Bucket,
		"probe.baseUrl":        c.Probe.BaseURL,
		"probe.timeout":        c.Probe.Timeout.String(),
		"probe.sessionId":      Redact(c.Probe.SessionID),
		"probe.adminSessionId": Redact(c.Probe.AdminSessionID),
		"probe.bearerToken":    Redact(c.Probe.BearerToken),
		"log.level":            c.Log.Level,
		"log.file":             c.Log.File,
	}
	return out
}

// RedactedKeys 按字典序返回 Redacted 的键
func RedactedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
