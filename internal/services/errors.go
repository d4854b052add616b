package services

import "errors"

var (
	// ErrFetchFailed 读取评论失败，调用方降级为空列表
	ErrFetchFailed = errors.New("fetch comments failed")
	// ErrSubmitFailed 发表评论失败
	ErrSubmitFailed = errors.New("submit comment failed")
	// ErrDeleteFailed 删除评论失败
	ErrDeleteFailed = errors.New("delete comment failed")
	// ErrNotFound 评论不存在
	ErrNotFound = errors.New("comment not found")
	// ErrValidationFailed 表单校验未通过，不会发往数据库
	ErrValidationFailed = errors.New("validation failed")
	// ErrInvalidPassword 管理员口令错误
	ErrInvalidPassword = errors.New("invalid password")
)
