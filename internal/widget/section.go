// Package widget holds the live state of mounted comment sections.
package widget

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"kejinlab/internal/logger"
	"kejinlab/internal/metrics"
	"kejinlab/internal/models"
	"kejinlab/internal/realtime"
	"kejinlab/internal/services"
	"kejinlab/internal/utils"

	"go.uber.org/zap"
)

var (
	// ErrClosed 评论区已被回收（LRU 淘汰或服务关闭）
	ErrClosed = errors.New("comment section closed")
	// ErrForbidden 非管理员删除不属于自己的评论
	ErrForbidden = errors.New("not allowed to delete this comment")
)

// State 评论区状态，不存在错误终态
type State int

const (
	StateLoading State = iota
	StateReady
)

func (s State) String() string {
	if s == StateReady {
		return "ready"
	}
	return "loading"
}

// Store 评论区依赖的存储能力，*services.CommentStore 满足该接口
type Store interface {
	ListThread(ctx context.Context, pageID string) ([]models.Comment, error)
	PostComment(ctx context.Context, in services.NewComment) (*models.Comment, error)
	DeleteComment(ctx context.Context, id uint, asAdmin bool) error
	Subscribe(ctx context.Context, pageID string, onChange func(realtime.ChangeEvent)) (*services.Subscription, error)
}

// Options configures a Section.
type Options struct {
	PageID         string
	AdminNickname  string
	AdminAvatarURL string
	PageSize       int // 初始显示的根评论数
	LoadMoreStep   int
	Gate           *services.AdminGate
}

// ToastKind is the tone of a transient notification.
type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
)

// Toast 一次性提示，Key 为 i18n 键
type Toast struct {
	Kind ToastKind
	Key  string
}

// Draft 一个表单的草稿及校验失败的字段
type Draft struct {
	Form   services.CommentForm
	Errors map[string]bool
}

// rootDraft 是顶层表单在 drafts 中的键，回复表单用父评论 id
const rootDraft uint = 0

// Section 一个已挂载的评论区实例：每次页面访问一个，各自持有管理员状态
type Section struct {
	id    string
	opts  Options
	store Store
	admin *AdminSession

	mu         sync.Mutex
	state      State
	attempted  bool
	forest     []*utils.CommentNode
	version    uint64
	fetchSeq   uint64
	appliedSeq uint64
	visible    int
	drafts     map[uint]*Draft
	toast      *Toast
	loginError bool

	mounts    int
	epoch     uint64
	sub       *services.Subscription
	listeners map[chan struct{}]struct{}
	closed    bool
}

// NewSection creates a section in the Loading state. Call Refresh to load it.
func NewSection(id string, store Store, opts Options) *Section {
	if opts.PageSize <= 0 {
		opts.PageSize = 3
	}
	if opts.LoadMoreStep <= 0 {
		opts.LoadMoreStep = 5
	}
	return &Section{
		id:        id,
		opts:      opts,
		store:     store,
		admin:     &AdminSession{},
		state:     StateLoading,
		forest:    make([]*utils.CommentNode, 0),
		visible:   opts.PageSize,
		drafts:    make(map[uint]*Draft),
		listeners: make(map[chan struct{}]struct{}),
	}
}

// ID returns the instance id.
func (s *Section) ID() string { return s.id }

// PageID returns the thread partition the section shows.
func (s *Section) PageID() string { return s.opts.PageID }

// State returns the current state.
func (s *Section) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Version increases every time the forest is rebuilt.
func (s *Section) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// IsAdmin reports whether this section's admin session is active.
func (s *Section) IsAdmin() bool { return s.admin.Active() }

func (s *Section) log() *zap.Logger {
	return logger.L().With(zap.String("instance", s.id), zap.String("page_id", s.opts.PageID))
}

// Refresh 全量拉取并重建评论树。拉取失败时保留上一次的结果
func (s *Section) Refresh(ctx context.Context) {
	s.refresh(ctx, nil)
}

// refresh applies the fetched snapshot unless the section closed, or, for push-triggered
// refreshes, the mount that requested it has ended.
func (s *Section) refresh(ctx context.Context, epoch *uint64) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.fetchSeq++
	seq := s.fetchSeq
	s.mu.Unlock()

	rows, err := s.store.ListThread(ctx, s.opts.PageID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || (epoch != nil && *epoch != s.epoch) {
		s.log().Debug("discard stale fetch")
		return
	}
	s.attempted = true
	if err != nil {
		metrics.StoreFailures.WithLabelValues("fetch").Inc()
		s.log().Warn("fetch comments", zap.Error(err))
		return
	}
	// 并发拉取时只接受更新的快照
	if seq < s.appliedSeq {
		return
	}
	s.appliedSeq = seq
	s.forest = utils.BuildForest(rows)
	s.state = StateReady
	s.version++
	s.notifyLocked()
}

func (s *Section) notifyLocked() {
	for ch := range s.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Mount 获取实时订阅；多次 Mount 只订阅一次，直到对应次数的 Unmount
func (s *Section) Mount(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.mounts++
	if s.sub != nil {
		return nil
	}

	epoch := s.epoch
	sub, err := s.store.Subscribe(ctx, s.opts.PageID, func(ev realtime.ChangeEvent) {
		s.log().Debug("change event", zap.String("type", string(ev.Type)))
		s.refresh(context.Background(), &epoch)
	})
	if err != nil {
		s.mounts--
		return fmt.Errorf("mount %s: %w", s.id, err)
	}
	s.sub = sub
	return nil
}

// Unmount releases one Mount; the subscription is closed when none remain.
func (s *Section) Unmount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mounts > 0 {
		s.mounts--
	}
	if s.mounts == 0 {
		s.releaseLocked()
	}
}

func (s *Section) releaseLocked() {
	s.epoch++
	if s.sub == nil {
		return
	}
	if err := s.sub.Close(); err != nil {
		s.log().Warn("release subscription", zap.Error(err))
	}
	s.sub = nil
}

// Mounted reports whether a realtime subscription is held.
func (s *Section) Mounted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sub != nil
}

// Updates returns a channel signalled after each rebuild and a func to stop listening.
// The channel is closed when the section closes.
func (s *Section) Updates() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	s.listeners[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.listeners[ch]; ok {
				delete(s.listeners, ch)
				close(ch)
			}
		})
	}
}

// Close releases everything the section holds. Further calls return ErrClosed.
func (s *Section) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.mounts = 0
	s.releaseLocked()
	for ch := range s.listeners {
		close(ch)
	}
	s.listeners = map[chan struct{}]struct{}{}
}

// Closed reports whether Close was called.
func (s *Section) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// LoadMore 显示更多根评论
func (s *Section) LoadMore() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.visible += s.opts.LoadMoreStep
	return nil
}

func (s *Section) setToastLocked(kind ToastKind, key string) {
	s.toast = &Toast{Kind: kind, Key: key}
}

// findLocked looks a comment up in the current forest.
func (s *Section) findLocked(id uint) *utils.CommentNode {
	for _, root := range s.forest {
		if root.ID == id {
			return root
		}
		for _, r := range root.Replies {
			if r.ID == id {
				return r
			}
		}
	}
	return nil
}
