package notification

import (
	"context"
	"encoding/json"

	"talentflow/pkg/errutil"
	"talentflow/pkg/repository"
	"talentflow/pkg/task"
	"talentflow/pkg/taskname"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	asynq task.Enqueuer
	node  *snowflake.Node
	repo  repository.Repository[Notification]
}

type ServiceParams struct {
	fx.In
	DB    *gorm.DB
	Asynq task.Enqueuer
	Node  *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:    p.DB,
		asynq: p.Asynq,
		node:  p.Node,
		repo:  repository.ProvideStore[Notification](p.DB),
	}
}

type DispatchPayload struct {
	UserIDs []string `json:"user_ids"`
	Message string   `json:"message"`
}

// NotifyUsers writes one notification row per recipient inside the caller's
// transaction and enqueues out-of-process delivery. The actor never receives
// a notification for their own action. Enqueue failures are logged, not
// returned: delivery is best-effort, the rows are the durable record.
func (s *Service) NotifyUsers(ctx context.Context, tx *gorm.DB, userIDs []string, message, actorID string) error {
	seen := make(map[string]struct{}, len(userIDs))
	rows := make([]*Notification, 0, len(userIDs))
	recipients := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if id == "" || id == actorID {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		rows = append(rows, &Notification{
			ID:      s.node.Generate().String(),
			UserID:  id,
			Message: message,
		})
		recipients = append(recipients, id)
	}

	if len(rows) == 0 {
		return nil
	}

	if err := s.repo.WithTrx(tx).BatchCreate(ctx, rows); err != nil {
		return err
	}

	payload, err := json.Marshal(DispatchPayload{
		UserIDs: recipients,
		Message: message,
	})
	if err != nil {
		return err
	}

	if _, err := s.asynq.Enqueue(asynq.NewTask(taskname.NotificationDispatch, payload)); err != nil {
		zap.L().Warn("failed to enqueue notification dispatch", zap.Error(err))
	}

	return nil
}

// HasUnread reports whether the user already has an unread notification with
// the exact same message. Used to suppress repeated alerts.
func (s *Service) HasUnread(ctx context.Context, userID, message string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Notification{}).
		Where("user_id = ? AND message = ? AND is_read = ?", userID, message, false).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]*Notification, error) {
	rows, err := s.repo.Find(ctx, &Notification{UserID: userID})
	if err != nil {
		return nil, errutil.Internal("failed to list notifications", err)
	}
	return rows, nil
}

func (s *Service) MarkRead(ctx context.Context, id string) error {
	if err := s.repo.Update(ctx, id, map[string]any{"is_read": true}); err != nil {
		if err == gorm.ErrRecordNotFound {
			return errutil.NotFound("notification not found", nil)
		}
		return errutil.Internal("failed to mark notification read", err)
	}
	return nil
}
