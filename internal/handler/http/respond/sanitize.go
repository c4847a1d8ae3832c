package respond

import (
	"regexp"
)

var (
	// Authorization ヘッダーのトークンパターン
	// 注意: bearerPatternを先に適用する（より具体的なパターンから）
	bearerPattern = regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9\-_.=]+`)
	// 裸のJWT（ヘッダー部が {"alg": ... } のbase64でeyJから始まる）
	jwtPattern = regexp.MustCompile(`eyJ[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_]*`)

	// フィードURL内のBasic認証パスワードパターン
	urlCredentialPattern = regexp.MustCompile(`://([^:/@\s]+):([^@\s]+)@`)
)

// SanitizeError は機密情報をマスクしたエラーメッセージを返す
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()

	// トークンのマスク（順序重要: より具体的なパターンから適用）
	msg = bearerPattern.ReplaceAllString(msg, "Bearer ****")
	msg = jwtPattern.ReplaceAllString(msg, "****")

	// URL内クレデンシャルのマスク
	msg = urlCredentialPattern.ReplaceAllString(msg, "://$1:****@")

	return msg
}
