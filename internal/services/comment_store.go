package services

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"kejinlab/internal/logger"
	"kejinlab/internal/metrics"
	"kejinlab/internal/models"
	"kejinlab/internal/realtime"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NewComment 插入评论所需的字段，id 与 created_at 由数据库分配
type NewComment struct {
	PageID   string
	ParentID *uint
	Nickname string
	Content  string
	Email    string
	Phone    string
	Avatar   string
}

// CommentStore 评论表读写，并在每次写入后推送变更事件
type CommentStore struct {
	db     *gorm.DB
	broker realtime.Broker
}

// NewCommentStore creates a store over conn that announces writes on broker.
func NewCommentStore(conn *gorm.DB, broker realtime.Broker) *CommentStore {
	return &CommentStore{db: conn, broker: broker}
}

// ListThread returns every row of pageID, oldest first. Hidden rows are included.
func (s *CommentStore) ListThread(ctx context.Context, pageID string) ([]models.Comment, error) {
	var rows []models.Comment
	err := s.db.WithContext(ctx).
		Where("page_id = ?", pageID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	return rows, nil
}

// FetchThread is ListThread that logs failures and degrades to an empty thread.
func (s *CommentStore) FetchThread(ctx context.Context, pageID string) []models.Comment {
	rows, err := s.ListThread(ctx, pageID)
	if err != nil {
		metrics.StoreFailures.WithLabelValues("fetch").Inc()
		logger.L().Warn("fetch comments", zap.String("page_id", pageID), zap.Error(err))
		return []models.Comment{}
	}
	return rows
}

// PostComment inserts a row and returns it with the assigned id and timestamp.
func (s *CommentStore) PostComment(ctx context.Context, in NewComment) (*models.Comment, error) {
	comment := models.Comment{
		PageID:   in.PageID,
		ParentID: in.ParentID,
		Nickname: in.Nickname,
		Content:  in.Content,
		Email:    in.Email,
		Avatar:   in.Avatar,
	}
	if in.Phone != "" {
		phone := in.Phone
		comment.Phone = &phone
	}

	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		metrics.StoreFailures.WithLabelValues("insert").Inc()
		logger.L().Error("insert comment", zap.String("page_id", in.PageID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}

	kind := "root"
	if !comment.IsRoot() {
		kind = "reply"
	}
	metrics.CommentsPosted.WithLabelValues(kind).Inc()

	created := comment
	s.publish(ctx, realtime.ChangeEvent{Type: realtime.EventInsert, New: &created})
	return &comment, nil
}

// DeleteComment 管理员硬删除整行；普通访客只能把 is_hidden 置为 true
func (s *CommentStore) DeleteComment(ctx context.Context, id uint, asAdmin bool) error {
	if asAdmin {
		return s.hardDelete(ctx, id)
	}
	return s.softDelete(ctx, id)
}

func (s *CommentStore) hardDelete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Comment{}, id)
	if err := deleteResult(res, id); err != nil {
		metrics.StoreFailures.WithLabelValues("delete").Inc()
		return err
	}
	metrics.CommentsDeleted.WithLabelValues("hard").Inc()

	// 删除事件只带 id，不带 page_id，订阅方一律按"页面未知"处理
	s.publish(ctx, realtime.ChangeEvent{Type: realtime.EventDelete, Old: &models.Comment{ID: id}})
	return nil
}

func (s *CommentStore) softDelete(ctx context.Context, id uint) error {
	var updated models.Comment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Comment{}).Where("id = ?", id).Update("is_hidden", true)
		if err := deleteResult(res, id); err != nil {
			return err
		}
		return tx.First(&updated, id).Error
	})
	if err != nil {
		metrics.StoreFailures.WithLabelValues("hide").Inc()
		if errors.Is(err, ErrDeleteFailed) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}
	metrics.CommentsDeleted.WithLabelValues("soft").Inc()

	s.publish(ctx, realtime.ChangeEvent{Type: realtime.EventUpdate, New: &updated})
	return nil
}

func deleteResult(res *gorm.DB, id uint) error {
	if res.Error != nil {
		logger.L().Error("delete comment", zap.Uint("id", id), zap.Error(res.Error))
		return fmt.Errorf("%w: %v", ErrDeleteFailed, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %w", ErrDeleteFailed, ErrNotFound)
	}
	return nil
}

// publish 推送失败只记录日志，写入本身已经成功
func (s *CommentStore) publish(ctx context.Context, ev realtime.ChangeEvent) {
	if s.broker == nil {
		return
	}
	if err := s.broker.Publish(ctx, ev); err != nil {
		logger.L().Warn("publish change event", zap.String("type", string(ev.Type)), zap.Error(err))
		return
	}
	metrics.RealtimeEvents.WithLabelValues(string(ev.Type)).Inc()
}

// Subscription 评论变更订阅，Close 可重复调用
type Subscription struct {
	inner *realtime.Subscription
	once  sync.Once
	err   error
}

// Close releases the broker channel.
func (s *Subscription) Close() error {
	s.once.Do(func() {
		s.err = s.inner.Close()
		metrics.LiveSubscriptions.Dec()
	})
	return s.err
}

// Subscribe calls onChange for every event relevant to pageID until the
// subscription is closed or ctx is done. onChange runs on the subscription's goroutine.
func (s *CommentStore) Subscribe(ctx context.Context, pageID string, onChange func(realtime.ChangeEvent)) (*Subscription, error) {
	if s.broker == nil {
		return nil, errors.New("comment store has no realtime broker")
	}
	inner, err := s.broker.Subscribe(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", pageID, err)
	}
	metrics.LiveSubscriptions.Inc()
	sub := &Subscription{inner: inner}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.L().Error("panic in comment subscriber",
					zap.String("page_id", pageID), zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				_ = sub.Close()
			}
		}()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case ev, ok := <-inner.C:
				if !ok {
					return
				}
				// broker 已按页面路由，这里再过滤一次
				if !ev.BelongsTo(pageID) {
					continue
				}
				onChange(ev)
			}
		}
	}()

	return sub, nil
}
