package services

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const adminKeyLen = 64 // 512 bit

// AdminGate 管理员口令校验：PBKDF2-HMAC-SHA256 后与参考哈希比对
// 只控制界面能力，不是服务端鉴权
type AdminGate struct {
	salt       []byte
	iterations int
	reference  []byte // hex 编码后的参考哈希
}

// NewAdminGate builds a gate for the given salt, iteration count and hex reference hash.
func NewAdminGate(salt string, iterations int, referenceHex string) *AdminGate {
	return &AdminGate{
		salt:       []byte(salt),
		iterations: iterations,
		reference:  []byte(strings.ToLower(strings.TrimSpace(referenceHex))),
	}
}

// Derive returns the lowercase hex PBKDF2 digest of password.
func (g *AdminGate) Derive(password string) string {
	key := pbkdf2.Key([]byte(password), g.salt, g.iterations, adminKeyLen, sha256.New)
	return hex.EncodeToString(key)
}

// Verify reports whether password reproduces the reference hash.
func (g *AdminGate) Verify(password string) bool {
	if password == "" || len(g.reference) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(g.Derive(password)), g.reference) == 1
}

// Check is Verify returning ErrInvalidPassword on mismatch.
func (g *AdminGate) Check(password string) error {
	if !g.Verify(password) {
		return ErrInvalidPassword
	}
	return nil
}
