package pwa

import (
	"encoding/base64"
	"strings"
)

var urlSafeReplacer = strings.NewReplacer("-", "+", "_", "/")

// DecodeBase64URL 解码服务端下发的 URL-safe base64 公钥：
// 先用 "=" 补齐到 4 的倍数，再把 "-" "_" 换回 "+" "/"，最后按标准 base64 解码。
func DecodeBase64URL(value string) ([]byte, error) {
	padding := strings.Repeat("=", (4-len(value)%4)%4)
	standard := urlSafeReplacer.Replace(value + padding)
	return base64.StdEncoding.DecodeString(standard)
}
