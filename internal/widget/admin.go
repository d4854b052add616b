package widget

import "sync"

// AdminSession 管理员状态只存在内存中，每个评论区实例各自一份，刷新页面即失效
type AdminSession struct {
	mu     sync.RWMutex
	active bool
}

// Active reports whether the session is in admin mode.
func (a *AdminSession) Active() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.active
}

func (a *AdminSession) grant() {
	a.mu.Lock()
	a.active = true
	a.mu.Unlock()
}

func (a *AdminSession) revoke() {
	a.mu.Lock()
	a.active = false
	a.mu.Unlock()
}
