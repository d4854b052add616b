package services

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MaxContentLength  = 500
	MaxNicknameLength = 50
	PhoneDigits       = 11
)

// 表单字段名，与模板中的 name 一致
const (
	FieldNickname = "nickname"
	FieldEmail    = "email"
	FieldPhone    = "phone"
	FieldContent  = "content"
)

// CommentForm 发表评论和回复共用的表单
type CommentForm struct {
	Nickname string `form:"nickname" json:"nickname"`
	Email    string `form:"email" json:"email"`
	Phone    string `form:"phone" json:"phone"`
	Content  string `form:"content" json:"content"`
}

// ValidationError lists the offending fields of a rejected form.
type ValidationError struct {
	Fields map[string]bool
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	return fmt.Sprintf("%s: %s", ErrValidationFailed, strings.Join(names, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrValidationFailed }

// With returns e with field marked as failed, allocating when e is nil.
func (e *ValidationError) With(field string) *ValidationError {
	if e == nil {
		e = &ValidationError{Fields: map[string]bool{}}
	}
	e.Fields[field] = true
	return e
}

// Has reports whether field failed validation.
func (e *ValidationError) Has(field string) bool {
	return e != nil && e.Fields[field]
}

// Normalize 清理身份字段；手机号只去掉非数字，不截断，位数由 Validate 检查
func (f *CommentForm) Normalize() {
	f.Nickname = strings.TrimSpace(f.Nickname)
	f.Email = strings.TrimSpace(f.Email)
	f.Phone = DigitsOnly(f.Phone, 0)
}

// Validate returns nil when the form may be submitted.
func (f *CommentForm) Validate() *ValidationError {
	bad := map[string]bool{}

	if f.Nickname == "" || utf8.RuneCountInString(f.Nickname) > MaxNicknameLength {
		bad[FieldNickname] = true
	}
	if f.Email == "" {
		bad[FieldEmail] = true
	}
	if strings.TrimSpace(f.Content) == "" || utf8.RuneCountInString(f.Content) > MaxContentLength {
		bad[FieldContent] = true
	}
	if f.Phone != "" && (len(f.Phone) != PhoneDigits || DigitsOnly(f.Phone, 0) != f.Phone) {
		bad[FieldPhone] = true
	}

	if len(bad) == 0 {
		return nil
	}
	return &ValidationError{Fields: bad}
}

// DigitsOnly drops every non-digit rune; limit > 0 caps the result length.
func DigitsOnly(s string, limit int) string {
	var b strings.Builder
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			continue
		}
		if limit > 0 && b.Len() >= limit {
			break
		}
		b.WriteRune(r)
	}
	return b.String()
}
