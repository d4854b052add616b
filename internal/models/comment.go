package models

import (
	"time"
)

// Comment 评论表 comments，一行一条评论
// parent_id 不加外键约束：父评论被硬删除后子评论保留，由建树逻辑当作根处理
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PageID    string    `gorm:"size:128;not null;index:idx_comments_page_created,priority:1" json:"page_id"`
	ParentID  *uint     `gorm:"index" json:"parent_id"` // Nullable for top-level comments
	Nickname  string    `gorm:"size:50;not null" json:"nickname"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Email     string    `gorm:"size:255;not null" json:"email"`
	Phone     *string   `gorm:"size:11" json:"phone"`
	Avatar    string    `gorm:"size:512" json:"avatar"`
	IsHidden  bool      `gorm:"default:false;not null" json:"is_hidden"` // 非管理员删除时只做隐藏
	CreatedAt time.Time `gorm:"index:idx_comments_page_created,priority:2" json:"created_at"`
}

// IsRoot reports whether the row has no parent reference.
func (c *Comment) IsRoot() bool {
	return c.ParentID == nil
}

// PhoneValue returns the phone number or "" when absent.
func (c *Comment) PhoneValue() string {
	if c.Phone == nil {
		return ""
	}
	return *c.Phone
}
