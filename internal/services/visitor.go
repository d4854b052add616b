package services

import (
	"encoding/json"
	"slices"

	"kejinlab/internal/logger"

	"go.uber.org/zap"
)

// 持久化到访客 cookie 的键
const (
	KeyVisitorIdentity = "visitor-identity"
	KeyOwnedComments   = "owned-comment-ids"
	KeyLanguage        = "language-preference"
)

// KV 访客本地存储，sessions.Session 满足该接口
type KV interface {
	Get(key interface{}) interface{}
	Set(key interface{}, val interface{})
	Save() error
}

// VisitorIdentity 访客上次发表评论时填写的资料，用于预填表单
type VisitorIdentity struct {
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// VisitorCache 访客身份与"我的评论"缓存，只是便利功能，不是安全边界
// 值以 JSON 字符串保存，cookie 的 gob 编码无需注册类型
type VisitorCache struct {
	kv KV
}

// NewVisitorCache wraps a visitor's key/value storage.
func NewVisitorCache(kv KV) *VisitorCache {
	return &VisitorCache{kv: kv}
}

func (v *VisitorCache) load(key string, dst any) bool {
	raw, ok := v.kv.Get(key).(string)
	if !ok || raw == "" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		logger.L().Debug("discard malformed visitor value", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (v *VisitorCache) store(key string, val any) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return err
	}
	v.kv.Set(key, string(raw))
	return v.kv.Save()
}

// Identity returns the cached identity, zero when none is stored.
func (v *VisitorCache) Identity() VisitorIdentity {
	var id VisitorIdentity
	v.load(KeyVisitorIdentity, &id)
	return id
}

// SaveIdentity overwrites the cached identity.
func (v *VisitorCache) SaveIdentity(id VisitorIdentity) error {
	return v.store(KeyVisitorIdentity, id)
}

func (v *VisitorCache) owned() map[string][]uint {
	m := map[string][]uint{}
	v.load(KeyOwnedComments, &m)
	return m
}

// Owns reports whether the visitor authored comment id on pageID.
func (v *VisitorCache) Owns(pageID string, id uint) bool {
	return slices.Contains(v.owned()[pageID], id)
}

// OwnedIDs returns the ids the visitor authored on pageID.
func (v *VisitorCache) OwnedIDs(pageID string) []uint {
	return v.owned()[pageID]
}

// AddOwned records comment id as authored by the visitor on pageID.
func (v *VisitorCache) AddOwned(pageID string, id uint) error {
	m := v.owned()
	if slices.Contains(m[pageID], id) {
		return nil
	}
	m[pageID] = append(m[pageID], id)
	return v.store(KeyOwnedComments, m)
}

// Language returns the stored language preference or "".
func (v *VisitorCache) Language() string {
	var lang string
	v.load(KeyLanguage, &lang)
	return lang
}

// SetLanguage stores the language preference.
func (v *VisitorCache) SetLanguage(lang string) error {
	return v.store(KeyLanguage, lang)
}
