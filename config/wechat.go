package config

import (
	"encoding/pem"
	"fmt"
	"net/url"
	"os"
)

// WechatPayConfig 微信支付 APIv3 商户配置，只做存在性和格式校验，不做签名
type WechatPayConfig struct {
	AppID          string `mapstructure:"appId"`
	MchID          string `mapstructure:"mchId"`
	APIv3Key       string `mapstructure:"apiV3Key"`
	SerialNo       string `mapstructure:"serialNo"`
	PrivateKeyPath string `mapstructure:"privateKeyPath"`
	NotifyURL      string `mapstructure:"notifyUrl"`
}

func (w *WechatPayConfig) merge(o WechatPayConfig) {
	setString(&w.AppID, o.AppID)
	setString(&w.MchID, o.MchID)
	setString(&w.APIv3Key, o.APIv3Key)
	setString(&w.SerialNo, o.SerialNo)
	setString(&w.PrivateKeyPath, o.PrivateKeyPath)
	setString(&w.NotifyURL, o.NotifyURL)
}

// Configured 任意一个字段有值即视为启用了微信支付
func (w WechatPayConfig) Configured() bool {
	return w != WechatPayConfig{}
}

// Validate 返回发现的问题列表，空列表表示配置可用
func (w WechatPayConfig) Validate() []string {
	var problems []string
	if w.AppID == "" {
		problems = append(problems, "WECHAT_PAY_APP_ID is missing")
	}
	if w.MchID == "" {
		problems = append(problems, "WECHAT_PAY_MCH_ID is missing")
	}
	switch {
	case w.APIv3Key == "":
		problems = append(problems, "WECHAT_PAY_API_V3_KEY is missing")
	case len(w.APIv3Key) != 32:
		problems = append(problems, fmt.Sprintf("WECHAT_PAY_API_V3_KEY must be 32 bytes, got %d", len(w.APIv3Key)))
	}
	if w.SerialNo == "" {
		problems = append(problems, "WECHAT_PAY_SERIAL_NO is missing")
	}
	if w.PrivateKeyPath == "" {
		problems = append(problems, "WECHAT_PAY_PRIVATE_KEY_PATH is missing")
	} else if msg := checkPrivateKey(w.PrivateKeyPath); msg != "" {
		problems = append(problems, msg)
	}
	if w.NotifyURL == "" {
		problems = append(problems, "WECHAT_PAY_NOTIFY_URL is missing")
	} else if u, err := url.Parse(w.NotifyURL); err != nil || u.Scheme != "https" || u.Host == "" {
		problems = append(problems, "WECHAT_PAY_NOTIFY_URL must be an absolute https URL")
	}
	return problems
}

func checkPrivateKey(path string) string {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Sprintf("WECHAT_PAY_PRIVATE_KEY_PATH unreadable: %v", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return "WECHAT_PAY_PRIVATE_KEY_PATH is not a PEM file"
	}
	if block.Type != "PRIVATE KEY" && block.Type != "RSA PRIVATE KEY" {
		return fmt.Sprintf("WECHAT_PAY_PRIVATE_KEY_PATH has unexpected PEM block %q", block.Type)
	}
	return ""
}
