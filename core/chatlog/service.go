package chatlog

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/examsurveil/backend/core"
)

var (
	ErrNotFound = core.NewNotFoundError("Chat log not found")

	// ErrMessageExists is returned by repositories on a (join code, message ID) collision.
	ErrMessageExists = errors.New("a chat log with this message id already exists")
)

type (
	Repository interface {
		// CreateChatLog returns ErrMessageExists if the message was already recorded.
		CreateChatLog(ctx context.Context, c ChatLog, exec ...core.DBExecutor) (ChatLog, error)
		GetChatLog(ctx context.Context, joinCode, messageID string, exec ...core.DBExecutor) (ChatLog, error)
		// QueryChatLogs lists the messages of a meeting: timestamped ones first by client time,
		// then by record time and ID.
		QueryChatLogs(ctx context.Context, joinCode string, page Page, exec ...core.DBExecutor) ([]ChatLog, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create records a chat message. Recording the same message again returns the first record and
// discards the new payload.
func (svc *Service) Create(ctx context.Context, nc NewChatLog) (ChatLog, error) {
	c, err := svc.repo.CreateChatLog(ctx, ChatLog{
		JoinCode:       nc.JoinCode,
		MessageID:      nc.MessageID,
		SentAt:         ParseTimestamp(nc.TS),
		Type:           core.NullString(nc.Type),
		FromRole:       core.NullString(nc.FromRole),
		FromAttendeeID: core.NullString(nc.FromAttendeeID),
		ToRole:         core.NullString(nc.ToRole),
		ToAttendeeID:   core.NullString(nc.ToAttendeeID),
		Text:           nc.Text,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		if errors.Cause(err) == ErrMessageExists {
			return svc.repo.GetChatLog(ctx, nc.JoinCode, nc.MessageID)
		}
		return ChatLog{}, errors.Wrap(err, "creating chat log")
	}
	return c, nil
}

func (svc *Service) Query(ctx context.Context, joinCode string, page Page) ([]ChatLog, error) {
	logs, err := svc.repo.QueryChatLogs(ctx, core.CleanString(joinCode), page)
	if err != nil {
		return nil, errors.Wrap(err, "querying chat logs")
	}
	return logs, nil
}
