package widget

import (
	"html/template"

	"kejinlab/internal/services"
	"kejinlab/internal/utils"
)

// CommentView 渲染单条评论所需的数据
type CommentView struct {
	ID        uint
	ParentID  *uint
	Nickname  string
	AvatarURL string
	Date      string
	Depth     int

	Mention     string
	ContentHTML template.HTML
	Hidden      bool

	IsAdminAuthor bool
	CanDelete     bool
	// 联系方式只对管理员可见
	Email string
	Phone string

	Replies   []CommentView
	ReplyForm *FormView // 该评论下展开的回复表单
}

// FormView 表单草稿与出错字段
type FormView struct {
	ParentID       *uint
	Nickname       string
	Email          string
	Phone          string
	Content        string
	NicknameLocked bool
	Errors         map[string]bool
}

// HasError is a template helper.
func (f FormView) HasError(field string) bool { return f.Errors[field] }

// Prefill returns an empty reply form for parentID carrying only the identity fields.
func (f FormView) Prefill(parentID uint) FormView {
	return FormView{
		ParentID:       &parentID,
		Nickname:       f.Nickname,
		Email:          f.Email,
		Phone:          f.Phone,
		NicknameLocked: f.NicknameLocked,
		Errors:         map[string]bool{},
	}
}

// View 评论区的只读渲染模型
type View struct {
	InstanceID string
	PageID     string
	Version    uint64
	Loading    bool

	Admin         bool
	AdminNickname string
	LoginError    bool

	Comments []CommentView
	Total    int
	HasMore  bool

	Form  FormView
	Toast *Toast
}

// View builds the render model for visitor. The pending toast is consumed.
func (s *Section) View(visitor *services.VisitorCache) View {
	admin := s.admin.Active()
	identity := services.VisitorIdentity{}
	if visitor != nil {
		identity = visitor.Identity()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		InstanceID:    s.id,
		PageID:        s.opts.PageID,
		Version:       s.version,
		Loading:       s.state == StateLoading && !s.attempted,
		Admin:         admin,
		AdminNickname: s.opts.AdminNickname,
		LoginError:    s.loginError,
		Total:         utils.CountComments(s.forest),
		HasMore:       len(s.forest) > s.visible,
		Form:          s.formLocked(rootDraft, identity, admin),
		Toast:         s.toast,
	}
	s.toast = nil
	s.loginError = false

	roots := s.forest
	if len(roots) > s.visible {
		roots = roots[:s.visible]
	}
	v.Comments = make([]CommentView, 0, len(roots))
	for _, root := range roots {
		cv := s.commentLocked(root, visitor, admin)
		cv.Replies = make([]CommentView, 0, len(root.Replies))
		for _, r := range root.Replies {
			cv.Replies = append(cv.Replies, s.commentLocked(r, visitor, admin))
		}
		v.Comments = append(v.Comments, cv)
	}
	return v
}

func (s *Section) commentLocked(n *utils.CommentNode, visitor *services.VisitorCache, admin bool) CommentView {
	cv := CommentView{
		ID:            n.ID,
		ParentID:      n.ParentID,
		Nickname:      n.Nickname,
		AvatarURL:     n.AvatarURL,
		Date:          n.Date,
		Depth:         n.Depth,
		Hidden:        n.IsHidden,
		IsAdminAuthor: s.isAdminAuthor(n),
	}

	switch {
	case admin:
		cv.CanDelete = true
	case n.IsHidden:
		// 已隐藏的评论作者无需再删
	case visitor != nil:
		cv.CanDelete = visitor.Owns(s.opts.PageID, n.ID)
	}

	if admin {
		cv.Email = n.Email
		cv.Phone = n.PhoneValue()
	}

	// 隐藏的评论保留位置，内容由模板显示占位文字
	if !n.IsHidden {
		body := n.Content
		if n.Depth > 0 {
			cv.Mention, body = utils.SplitMention(n.Content)
		}
		cv.ContentHTML = utils.RenderMarkdown(body)
	}

	if d, ok := s.drafts[n.ID]; ok && (len(d.Errors) > 0 || d.Form.Content != "") {
		form := s.formLocked(n.ID, services.VisitorIdentity{}, admin)
		cv.ReplyForm = &form
	}
	return cv
}

// isAdminAuthor 管理员发表的评论同时带有管理员昵称和头像
func (s *Section) isAdminAuthor(n *utils.CommentNode) bool {
	return n.Nickname == s.opts.AdminNickname && n.Avatar == s.opts.AdminAvatarURL
}

// formLocked returns the draft for key, pre-filled from the visitor identity when none exists.
func (s *Section) formLocked(key uint, identity services.VisitorIdentity, admin bool) FormView {
	f := FormView{
		Nickname: identity.Nickname,
		Email:    identity.Email,
		Phone:    identity.Phone,
		Errors:   map[string]bool{},
	}
	if key != rootDraft {
		id := key
		f.ParentID = &id
	}
	if d, ok := s.drafts[key]; ok {
		f.Nickname = d.Form.Nickname
		f.Email = d.Form.Email
		f.Phone = d.Form.Phone
		f.Content = d.Form.Content
		for k, bad := range d.Errors {
			f.Errors[k] = bad
		}
	}
	if admin {
		f.Nickname = s.opts.AdminNickname
		f.NicknameLocked = true
	}
	return f
}
