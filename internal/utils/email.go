package utils

import (
	"regexp"
	"strings"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsValidEmail 简单校验邮箱格式
func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// EmailDomain 提取邮箱域名，"john@mit.edu" -> "mit.edu"
// 格式不合法时返回空串
func EmailDomain(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 || parts[1] == "" {
		return ""
	}
	return strings.ToLower(parts[1])
}
