package widget

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"kejinlab/internal/models"
	"kejinlab/internal/services"
	"kejinlab/internal/utils"

	"go.uber.org/zap"
)

// Submit 发表评论或回复（parentID 非空）
//
// 校验失败时草稿和出错字段保留，不会访问数据库；发表失败时整份草稿保留以便重试；
// 成功后只清空内容，非管理员记录"我的评论"和身份信息。
func (s *Section) Submit(ctx context.Context, visitor *services.VisitorCache, parentID *uint, form services.CommentForm) (*models.Comment, error) {
	admin := s.admin.Active()
	key := rootDraft
	if parentID != nil {
		key = *parentID
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if admin {
		form.Nickname = s.opts.AdminNickname
	}
	form.Nickname = utils.StripTags(form.Nickname)
	form.Normalize()
	draft := &Draft{Form: form}
	s.drafts[key] = draft

	verr := form.Validate()
	// 访客不能冒用管理员昵称
	reserved := !admin && s.isAdminNickname(form.Nickname)
	if reserved {
		verr = verr.With(services.FieldNickname)
	}
	if verr != nil {
		draft.Errors = verr.Fields
		if reserved {
			s.setToastLocked(ToastError, "toast.reservedNickname")
		} else {
			s.setToastLocked(ToastError, "toast.invalid")
		}
		s.mu.Unlock()
		return nil, verr
	}

	// 只能回复本评论区当前显示的评论
	var parent *utils.CommentNode
	if parentID != nil {
		if parent = s.findLocked(*parentID); parent == nil {
			delete(s.drafts, key)
			s.setToastLocked(ToastError, "toast.replyMissing")
			s.mu.Unlock()
			return nil, fmt.Errorf("%w: comment %d is not in thread %s", services.ErrValidationFailed, *parentID, s.opts.PageID)
		}
	}

	in := services.NewComment{
		PageID:   s.opts.PageID,
		ParentID: parentID,
		Nickname: form.Nickname,
		Content:  form.Content,
		Email:    form.Email,
		Phone:    form.Phone,
		Avatar:   utils.IdenticonURL(form.Email),
	}
	if admin {
		in.Avatar = s.opts.AdminAvatarURL
	}
	if parent != nil && !strings.HasPrefix(form.Content, "@"+parent.Nickname+" ") {
		in.Content = fmt.Sprintf("@%s %s", parent.Nickname, form.Content)
	}
	s.mu.Unlock()

	created, err := s.store.PostComment(ctx, in)

	s.mu.Lock()
	if err != nil {
		s.setToastLocked(ToastError, "toast.postFailed")
		s.mu.Unlock()
		s.log().Warn("post comment", zap.Error(err))
		return nil, err
	}
	if parentID != nil {
		delete(s.drafts, key)
		// 顶层表单沿用这次填写的身份
		if root, ok := s.drafts[rootDraft]; ok && root.Form.Content == "" {
			delete(s.drafts, rootDraft)
		}
	} else {
		draft.Form.Content = ""
		draft.Errors = nil
	}
	s.setToastLocked(ToastSuccess, "toast.posted")
	s.mu.Unlock()

	if !admin && visitor != nil {
		if err := visitor.AddOwned(s.opts.PageID, created.ID); err != nil {
			s.log().Warn("remember owned comment", zap.Uint("id", created.ID), zap.Error(err))
		}
		identity := services.VisitorIdentity{Nickname: form.Nickname, Email: form.Email, Phone: form.Phone}
		if err := visitor.SaveIdentity(identity); err != nil {
			s.log().Warn("remember visitor identity", zap.Error(err))
		}
	}

	s.Refresh(ctx)
	return created, nil
}

func (s *Section) isAdminNickname(nickname string) bool {
	admin := strings.TrimSpace(s.opts.AdminNickname)
	return admin != "" && strings.EqualFold(strings.TrimSpace(nickname), admin)
}

// CanDelete reports whether the visitor may delete comment id in this section.
func (s *Section) CanDelete(visitor *services.VisitorCache, id uint) bool {
	if s.admin.Active() {
		return true
	}
	return visitor != nil && visitor.Owns(s.opts.PageID, id)
}

// Delete 管理员硬删除，作者本人软删除（隐藏）
func (s *Section) Delete(ctx context.Context, visitor *services.VisitorCache, id uint) error {
	if s.Closed() {
		return ErrClosed
	}
	admin := s.admin.Active()
	if !s.CanDelete(visitor, id) {
		s.mu.Lock()
		s.setToastLocked(ToastError, "toast.forbidden")
		s.mu.Unlock()
		return ErrForbidden
	}

	err := s.store.DeleteComment(ctx, id, admin)

	s.mu.Lock()
	if err != nil {
		s.setToastLocked(ToastError, "toast.deleteFailed")
		s.mu.Unlock()
		s.log().Warn("delete comment", zap.Uint("id", id), zap.Bool("admin", admin), zap.Error(err))
		return err
	}
	s.setToastLocked(ToastSuccess, "toast.deleted")
	s.mu.Unlock()

	s.Refresh(ctx)
	return nil
}

// Login 校验管理员口令，成功后本评论区进入管理员模式
func (s *Section) Login(password string) error {
	if s.Closed() {
		return ErrClosed
	}
	if s.opts.Gate == nil {
		return services.ErrInvalidPassword
	}

	err := s.opts.Gate.Check(password)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.loginError = true
		s.setToastLocked(ToastError, "toast.adminFailed")
		if !errors.Is(err, services.ErrInvalidPassword) {
			s.log().Error("verify admin password", zap.Error(err))
		}
		return err
	}
	s.admin.grant()
	s.loginError = false
	if d, ok := s.drafts[rootDraft]; ok {
		d.Form.Nickname = s.opts.AdminNickname
	}
	s.setToastLocked(ToastSuccess, "toast.adminOK")
	s.log().Info("admin session granted")
	return nil
}

// Logout 退出管理员模式，昵称恢复为访客缓存的昵称
func (s *Section) Logout(visitor *services.VisitorCache) error {
	if s.Closed() {
		return ErrClosed
	}
	s.admin.revoke()

	nickname := ""
	if visitor != nil {
		nickname = visitor.Identity().Nickname
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.drafts {
		d.Form.Nickname = nickname
		delete(d.Errors, services.FieldNickname)
	}
	s.setToastLocked(ToastSuccess, "toast.adminLoggedOut")
	return nil
}
