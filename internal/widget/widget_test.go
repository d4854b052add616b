package widget

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"kejinlab/internal/db/dbtest"
	"kejinlab/internal/models"
	"kejinlab/internal/realtime"
	"kejinlab/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPassword = "letmein"
	testHash     = "cf6657328d293a94d45477e1aec11ae39e5d0962e7c9ac0f37f89daed9bbabe004e615266cd25f717d3507130b66896e39e644445a88e58118cd8464f814927e"
)

type memKV map[interface{}]interface{}

func (m memKV) Get(key interface{}) interface{}      { return m[key] }
func (m memKV) Set(key interface{}, val interface{}) { m[key] = val }
func (m memKV) Save() error                          { return nil }

func newVisitor() *services.VisitorCache { return services.NewVisitorCache(memKV{}) }

func testOptions() Options {
	return Options{
		PageID:         "home",
		AdminNickname:  "Kejin.AI",
		AdminAvatarURL: "/static/img/admin-avatar.svg",
		PageSize:       3,
		LoadMoreStep:   5,
		Gate:           services.NewAdminGate("test-salt", 1000, testHash),
	}
}

func newTestStore(t *testing.T) (*services.CommentStore, *realtime.MemoryBroker) {
	t.Helper()
	broker := realtime.NewMemoryBroker()
	t.Cleanup(func() { _ = broker.Close() })
	return services.NewCommentStore(dbtest.Open(t), broker), broker
}

func newTestSection(t *testing.T, store Store) *Section {
	t.Helper()
	s := NewSection("test-instance", store, testOptions())
	t.Cleanup(s.Close)
	s.Refresh(context.Background())
	return s
}

func form(nick, content string) services.CommentForm {
	return services.CommentForm{Nickname: nick, Email: nick + "@example.com", Content: content}
}

func findComment(v View, id uint) *CommentView {
	for i := range v.Comments {
		if v.Comments[i].ID == id {
			return &v.Comments[i]
		}
		for j := range v.Comments[i].Replies {
			if v.Comments[i].Replies[j].ID == id {
				return &v.Comments[i].Replies[j]
			}
		}
	}
	return nil
}

func TestSection_LoadingToReady(t *testing.T) {
	store, _ := newTestStore(t)
	s := NewSection("a", store, testOptions())
	defer s.Close()

	assert.Equal(t, StateLoading, s.State())
	assert.True(t, s.View(nil).Loading)

	s.Refresh(context.Background())
	assert.Equal(t, StateReady, s.State())
	assert.Equal(t, uint64(1), s.Version())

	s.Refresh(context.Background())
	assert.Equal(t, StateReady, s.State())
	assert.Equal(t, uint64(2), s.Version())
}

func TestSection_OwnershipGating(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	s := newTestSection(t, store)

	alice, bob := newVisitor(), newVisitor()
	x, err := s.Submit(ctx, alice, nil, form("alice", "mine"))
	require.NoError(t, err)
	y, err := s.Submit(ctx, bob, nil, form("bob", "not yours"))
	require.NoError(t, err)

	v := s.View(alice)
	assert.True(t, findComment(v, x.ID).CanDelete)
	assert.False(t, findComment(v, y.ID).CanDelete)
	assert.Empty(t, findComment(v, x.ID).Email, "contact details are admin only")

	assert.ErrorIs(t, s.Delete(ctx, alice, y.ID), ErrForbidden)
	assert.Equal(t, "toast.forbidden", s.View(alice).Toast.Key)

	// 另一个评论区实例的管理员状态互不影响
	other := NewSection("other", store, testOptions())
	defer other.Close()
	other.Refresh(ctx)
	require.NoError(t, other.Login(testPassword))
	assert.False(t, s.IsAdmin())

	av := other.View(alice)
	assert.True(t, av.Admin)
	assert.True(t, findComment(av, x.ID).CanDelete)
	assert.True(t, findComment(av, y.ID).CanDelete)
	assert.Equal(t, "bob@example.com", findComment(av, y.ID).Email)
}

func TestSection_SoftAndHardDelete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	s := newTestSection(t, store)
	visitor := newVisitor()

	c, err := s.Submit(ctx, visitor, nil, form("alice", "oops"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, visitor, c.ID))
	v := s.View(visitor)
	cv := findComment(v, c.ID)
	require.NotNil(t, cv, "soft-deleted comment keeps its place")
	assert.True(t, cv.Hidden)
	assert.Empty(t, cv.ContentHTML)
	assert.False(t, cv.CanDelete)
	assert.Equal(t, "toast.deleted", v.Toast.Key)

	require.NoError(t, s.Login(testPassword))
	require.NoError(t, s.Delete(ctx, visitor, c.ID))
	assert.Nil(t, findComment(s.View(visitor), c.ID))

	rows, err := store.ListThread(ctx, "home")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSection_AdminIdentity(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	s := newTestSection(t, store)
	visitor := newVisitor()
	require.NoError(t, visitor.SaveIdentity(services.VisitorIdentity{Nickname: "alice", Email: "a@example.com"}))

	require.NoError(t, s.Login(testPassword))
	v := s.View(visitor)
	assert.Equal(t, "Kejin.AI", v.Form.Nickname)
	assert.True(t, v.Form.NicknameLocked)
	assert.Equal(t, "toast.adminOK", v.Toast.Key)

	c, err := s.Submit(ctx, visitor, nil, form("mallory", "official answer"))
	require.NoError(t, err)
	assert.Equal(t, "Kejin.AI", c.Nickname)
	assert.Equal(t, "/static/img/admin-avatar.svg", c.Avatar)
	assert.False(t, visitor.Owns("home", c.ID), "admin posts are not recorded as owned")
	assert.Equal(t, "alice", visitor.Identity().Nickname, "admin posts do not overwrite the visitor identity")
	assert.True(t, findComment(s.View(visitor), c.ID).IsAdminAuthor)

	require.NoError(t, s.Logout(visitor))
	v = s.View(visitor)
	assert.False(t, v.Admin)
	assert.Equal(t, "alice", v.Form.Nickname)
	assert.False(t, v.Form.NicknameLocked)
}

func TestSection_LoginRejectsWrongPassword(t *testing.T) {
	store, _ := newTestStore(t)
	s := newTestSection(t, store)

	assert.ErrorIs(t, s.Login("wrong"), services.ErrInvalidPassword)
	v := s.View(nil)
	assert.False(t, v.Admin)
	assert.True(t, v.LoginError)
	assert.Equal(t, ToastError, v.Toast.Kind)

	// 提示与错误只显示一次
	v = s.View(nil)
	assert.False(t, v.LoginError)
	assert.Nil(t, v.Toast)
}

func TestSection_SubmitValidation(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	s := newTestSection(t, store)
	visitor := newVisitor()

	_, err := s.Submit(ctx, visitor, nil, form("alice", strings.Repeat("x", 501)))
	var verr *services.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has(services.FieldContent))

	rows, err := store.ListThread(ctx, "home")
	require.NoError(t, err)
	assert.Empty(t, rows, "invalid forms never reach the store")

	v := s.View(visitor)
	assert.True(t, v.Form.HasError(services.FieldContent))
	assert.Equal(t, "alice", v.Form.Nickname)
	assert.Len(t, v.Form.Content, 501)

	c, err := s.Submit(ctx, visitor, nil, form("alice", strings.Repeat("x", 500)))
	require.NoError(t, err)
	v = s.View(visitor)
	assert.Empty(t, v.Form.Content, "content is cleared after posting")
	assert.Equal(t, "alice", v.Form.Nickname)
	assert.Equal(t, "alice@example.com", v.Form.Email)
	assert.True(t, visitor.Owns("home", c.ID))
	assert.Equal(t, "alice", visitor.Identity().Nickname)
}

type failingStore struct {
	*services.CommentStore
	failPost  bool
	failFetch bool
}

func (f *failingStore) PostComment(ctx context.Context, in services.NewComment) (*models.Comment, error) {
	if f.failPost {
		return nil, fmt.Errorf("%w: connection reset", services.ErrSubmitFailed)
	}
	return f.CommentStore.PostComment(ctx, in)
}

func (f *failingStore) ListThread(ctx context.Context, pageID string) ([]models.Comment, error) {
	if f.failFetch {
		return nil, errors.New("backend unavailable")
	}
	return f.CommentStore.ListThread(ctx, pageID)
}

func TestSection_SubmitFailurePreservesDraft(t *testing.T) {
	base, _ := newTestStore(t)
	store := &failingStore{CommentStore: base, failPost: true}
	s := newTestSection(t, store)

	_, err := s.Submit(context.Background(), newVisitor(), nil, form("alice", "keep me"))
	assert.ErrorIs(t, err, services.ErrSubmitFailed)

	v := s.View(nil)
	assert.Equal(t, "keep me", v.Form.Content)
	assert.Equal(t, "alice", v.Form.Nickname)
	require.NotNil(t, v.Toast)
	assert.Equal(t, "toast.postFailed", v.Toast.Key)
}

func TestSection_FetchFailureKeepsPriorForest(t *testing.T) {
	base, _ := newTestStore(t)
	ctx := context.Background()
	_, err := base.PostComment(ctx, services.NewComment{PageID: "home", Nickname: "a", Content: "x", Email: "a@b.c"})
	require.NoError(t, err)

	store := &failingStore{CommentStore: base}
	s := newTestSection(t, store)
	require.Len(t, s.View(nil).Comments, 1)

	store.failFetch = true
	s.Refresh(ctx)
	assert.Len(t, s.View(nil).Comments, 1)
	assert.Equal(t, uint64(1), s.Version())

	fresh := NewSection("fresh", store, testOptions())
	defer fresh.Close()
	fresh.Refresh(ctx)
	v := fresh.View(nil)
	assert.Empty(t, v.Comments)
	assert.False(t, v.Loading, "a failed first fetch shows an empty thread")
	assert.Equal(t, StateLoading, fresh.State())
}

func TestSection_ReplyMention(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	s := newTestSection(t, store)

	root, err := s.Submit(ctx, newVisitor(), nil, form("alice", "first"))
	require.NoError(t, err)
	reply, err := s.Submit(ctx, newVisitor(), &root.ID, form("bob", "agreed"))
	require.NoError(t, err)
	assert.Equal(t, "@alice agreed", reply.Content)

	nested, err := s.Submit(ctx, newVisitor(), &reply.ID, form("carol", "me too"))
	require.NoError(t, err)
	assert.Equal(t, "@bob me too", nested.Content)

	v := s.View(nil)
	require.Len(t, v.Comments, 1)
	require.Len(t, v.Comments[0].Replies, 2, "replies to replies are flattened under the root")
	assert.Equal(t, "@alice", v.Comments[0].Replies[0].Mention)
	assert.Equal(t, "@bob", v.Comments[0].Replies[1].Mention)
	assert.Contains(t, string(v.Comments[0].Replies[1].ContentHTML), "me too")
}

func TestSection_ReplyValidationOpensReplyForm(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	s := newTestSection(t, store)

	root, err := s.Submit(ctx, newVisitor(), nil, form("alice", "first"))
	require.NoError(t, err)
	_, err = s.Submit(ctx, newVisitor(), &root.ID, services.CommentForm{Nickname: "bob", Content: "no email"})
	require.Error(t, err)

	cv := findComment(s.View(nil), root.ID)
	require.NotNil(t, cv.ReplyForm)
	assert.True(t, cv.ReplyForm.HasError(services.FieldEmail))
	assert.Equal(t, root.ID, *cv.ReplyForm.ParentID)
}

func TestSection_LoadMore(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		_, err := store.PostComment(ctx, services.NewComment{
			PageID: "home", Nickname: "n", Content: fmt.Sprintf("c%d", i), Email: "e@x.y",
		})
		require.NoError(t, err)
	}
	s := newTestSection(t, store)

	v := s.View(nil)
	assert.Len(t, v.Comments, 3)
	assert.True(t, v.HasMore)
	assert.Equal(t, 10, v.Total)

	require.NoError(t, s.LoadMore())
	assert.Len(t, s.View(nil).Comments, 8)

	require.NoError(t, s.LoadMore())
	v = s.View(nil)
	assert.Len(t, v.Comments, 10)
	assert.False(t, v.HasMore)
}

func TestSection_RealtimeRefresh(t *testing.T) {
	store, broker := newTestStore(t)
	ctx := context.Background()
	s := newTestSection(t, store)

	require.NoError(t, s.Mount(ctx))
	require.NoError(t, s.Mount(ctx))
	assert.Equal(t, 1, broker.Subscribers("home"), "mounting twice subscribes once")

	updates, stop := s.Updates()
	defer stop()

	_, err := store.PostComment(ctx, services.NewComment{PageID: "home", Nickname: "x", Content: "pushed", Email: "x@y.z"})
	require.NoError(t, err)

	select {
	case <-updates:
	case <-time.After(2 * time.Second):
		t.Fatal("no refresh after a change event")
	}
	assert.Len(t, s.View(nil).Comments, 1)

	s.Unmount()
	assert.True(t, s.Mounted())
	s.Unmount()
	assert.False(t, s.Mounted())
	assert.Equal(t, 0, broker.Subscribers("home"))
}

func TestSection_Close(t *testing.T) {
	store, broker := newTestStore(t)
	ctx := context.Background()
	s := NewSection("c", store, testOptions())
	s.Refresh(ctx)
	require.NoError(t, s.Mount(ctx))
	updates, _ := s.Updates()

	s.Close()
	s.Close()
	_, open := <-updates
	assert.False(t, open)
	assert.Equal(t, 0, broker.Subscribers("home"))

	version := s.Version()
	s.Refresh(ctx)
	assert.Equal(t, version, s.Version(), "fetches after close are ignored")
	assert.ErrorIs(t, s.Mount(ctx), ErrClosed)
	assert.ErrorIs(t, s.LoadMore(), ErrClosed)
	_, err := s.Submit(ctx, nil, nil, form("a", "b"))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRegistry_EvictsLeastRecentlyUsed(t *testing.T) {
	store, broker := newTestStore(t)
	ctx := context.Background()
	r, err := NewRegistry(2, store, testOptions())
	require.NoError(t, err)
	defer r.Close()

	first := r.Open(ctx, "home")
	assert.Equal(t, "home", first.PageID())
	assert.Equal(t, StateReady, first.State())
	require.NoError(t, first.Mount(ctx))

	second := r.Open(ctx, "project_1")
	_, ok := r.Get(second.ID())
	require.True(t, ok)

	r.Open(ctx, "project_2")
	_, ok = r.Get(first.ID())
	assert.False(t, ok)
	assert.True(t, first.Closed())
	assert.Equal(t, 0, broker.Subscribers("home"), "evicted sections release their subscription")
	assert.Equal(t, 2, r.Len())

	r.Remove(second.ID())
	assert.True(t, second.Closed())
	assert.NotEqual(t, first.ID(), second.ID())
}

func TestSection_ReplyMustTargetThisThread(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	foreign, err := store.PostComment(ctx, services.NewComment{
		PageID: "project_1", Nickname: "p", Content: "elsewhere", Email: "p@example.com",
	})
	require.NoError(t, err)
	s := newTestSection(t, store)

	for _, parentID := range []uint{foreign.ID, 999} {
		id := parentID
		_, err := s.Submit(ctx, newVisitor(), &id, form("bob", "hi"))
		assert.ErrorIs(t, err, services.ErrValidationFailed, "parent %d", id)

		v := s.View(nil)
		require.NotNil(t, v.Toast)
		assert.Equal(t, "toast.replyMissing", v.Toast.Key)
	}

	rows, err := store.ListThread(ctx, "home")
	require.NoError(t, err)
	assert.Empty(t, rows, "replies to comments outside the thread are not stored")
}

func TestSection_AdminNicknameIsReserved(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	s := newTestSection(t, store)
	visitor := newVisitor()

	_, err := s.Submit(ctx, visitor, nil, form(" kejin.ai ", "hello"))
	var verr *services.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has(services.FieldNickname))

	v := s.View(visitor)
	require.NotNil(t, v.Toast)
	assert.Equal(t, "toast.reservedNickname", v.Toast.Key)
	assert.True(t, v.Form.HasError(services.FieldNickname))

	rows, err := store.ListThread(ctx, "home")
	require.NoError(t, err)
	assert.Empty(t, rows)

	// 绕过表单写入的同名评论没有管理员头像，不显示徽章
	c, err := store.PostComment(ctx, services.NewComment{
		PageID: "home", Nickname: "Kejin.AI", Content: "fake", Email: "m@example.com",
		Avatar: "https://example.com/m.png",
	})
	require.NoError(t, err)
	s.Refresh(ctx)
	cv := findComment(s.View(visitor), c.ID)
	require.NotNil(t, cv)
	assert.False(t, cv.IsAdminAuthor)
}

// gatedStore 的 ListThread 阻塞到测试交回快照，用来控制拉取完成的时机和顺序
type gatedStore struct {
	*services.CommentStore
	calls chan chan []models.Comment
}

func newGatedStore(base *services.CommentStore) *gatedStore {
	return &gatedStore{CommentStore: base, calls: make(chan chan []models.Comment)}
}

func (g *gatedStore) ListThread(ctx context.Context, pageID string) ([]models.Comment, error) {
	reply := make(chan []models.Comment)
	g.calls <- reply
	return <-reply, nil
}

// next waits for a fetch to start and returns the channel that completes it.
func (g *gatedStore) next(t *testing.T) chan<- []models.Comment {
	t.Helper()
	select {
	case reply := <-g.calls:
		return reply
	case <-time.After(2 * time.Second):
		t.Fatal("no fetch started")
	}
	return nil
}

func refreshAsync(s *Section) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Refresh(context.Background())
	}()
	return done
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh did not return")
	}
}

func homeRows(n int) []models.Comment {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := make([]models.Comment, 0, n)
	for i := 1; i <= n; i++ {
		rows = append(rows, models.Comment{
			ID: uint(i), PageID: "home", Nickname: "n", Content: "c", Email: "n@example.com",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	return rows
}

func TestSection_FetchResolvingAfterCloseIsIgnored(t *testing.T) {
	base, _ := newTestStore(t)
	store := newGatedStore(base)
	s := NewSection("slow", store, testOptions())

	done := refreshAsync(s)
	reply := store.next(t)
	s.Close()
	reply <- homeRows(2)
	waitDone(t, done)

	assert.Equal(t, uint64(0), s.Version())
	assert.Equal(t, StateLoading, s.State())
	assert.True(t, s.View(nil).Loading)
}

func TestSection_PushFetchResolvingAfterUnmountIsIgnored(t *testing.T) {
	base, _ := newTestStore(t)
	store := newGatedStore(base)
	ctx := context.Background()
	s := NewSection("push", store, testOptions())
	defer s.Close()

	done := refreshAsync(s)
	store.next(t) <- homeRows(1)
	waitDone(t, done)
	require.Equal(t, uint64(1), s.Version())

	require.NoError(t, s.Mount(ctx))
	_, err := base.PostComment(ctx, services.NewComment{PageID: "home", Nickname: "x", Content: "pushed", Email: "x@example.com"})
	require.NoError(t, err)

	// 推送触发的拉取还在进行时页面离开
	reply := store.next(t)
	s.Unmount()
	reply <- homeRows(3)

	assert.Never(t, func() bool { return s.Version() != 1 }, 200*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, StateReady, s.State())
	assert.Len(t, s.View(nil).Comments, 1)
}

func TestSection_OlderSnapshotNeverReplacesNewer(t *testing.T) {
	base, _ := newTestStore(t)
	store := newGatedStore(base)
	s := NewSection("race", store, testOptions())
	defer s.Close()

	olderDone := refreshAsync(s)
	older := store.next(t)
	newerDone := refreshAsync(s)
	newer := store.next(t)

	newer <- homeRows(2)
	waitDone(t, newerDone)
	require.Equal(t, uint64(1), s.Version())

	older <- homeRows(1)
	waitDone(t, olderDone)

	assert.Equal(t, uint64(1), s.Version())
	assert.Equal(t, StateReady, s.State())
	assert.Len(t, s.View(nil).Comments, 2, "the newer snapshot stays applied")
}
