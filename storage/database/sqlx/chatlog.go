package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/examsurveil/backend/core"
	"github.com/examsurveil/backend/core/chatlog"
)

const chatLogColumns = `id, join_code, message_id, sent_at, msg_type, from_role, from_attendee_id, to_role,
	to_attendee_id, text, created_at`

type chatLogRepository struct {
	baseRepository
}

var _ chatlog.Repository = (*chatLogRepository)(nil) // interface compliance check

func NewChatLogRepository(exec core.DBExecutor) *chatLogRepository {
	return &chatLogRepository{baseRepository{exec: exec}}
}

func (repo chatLogRepository) CreateChatLog(ctx context.Context, c chatlog.ChatLog, exec ...core.DBExecutor) (chatlog.ChatLog, error) {
	q := `INSERT INTO meeting_chat_logs (join_code, message_id, sent_at, msg_type, from_role, from_attendee_id, to_role,
			to_attendee_id, text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING ` + chatLogColumns

	var created chatlog.ChatLog
	err := repo.getExec(exec).QueryRowxContext(
		ctx, q,
		c.JoinCode, c.MessageID, c.SentAt, c.Type, c.FromRole, c.FromAttendeeID, c.ToRole,
		c.ToAttendeeID, c.Text, c.CreatedAt.UTC(),
	).StructScan(&created)
	if err != nil {
		return chatlog.ChatLog{}, trapUniqueErr(err, chatlog.ErrMessageExists, "inserting chat log")
	}
	return created, nil
}

func (repo chatLogRepository) GetChatLog(ctx context.Context, joinCode, messageID string, exec ...core.DBExecutor) (chatlog.ChatLog, error) {
	var c chatlog.ChatLog
	q := `SELECT ` + chatLogColumns + ` FROM meeting_chat_logs WHERE join_code = $1 AND message_id = $2`
	if err := repo.getExec(exec).GetContext(ctx, &c, q, joinCode, messageID); err != nil {
		return chatlog.ChatLog{}, trapNoRowsErr(err, chatlog.ErrNotFound, "selecting chat log")
	}
	return c, nil
}

func (repo chatLogRepository) QueryChatLogs(ctx context.Context, joinCode string, page chatlog.Page, exec ...core.DBExecutor) ([]chatlog.ChatLog, error) {
	logs := make([]chatlog.ChatLog, 0)
	q := `SELECT ` + chatLogColumns + ` FROM meeting_chat_logs WHERE join_code = $1
		ORDER BY sent_at ASC NULLS LAST, created_at ASC, id ASC
		LIMIT $2 OFFSET $3`
	if err := repo.getExec(exec).SelectContext(ctx, &logs, q, joinCode, page.Limit, page.Offset); err != nil {
		return nil, errors.Wrap(err, "selecting chat logs")
	}
	return logs, nil
}
