package inmemdb

import (
	"context"
	"sort"

	"github.com/examsurveil/backend/core"
	"github.com/examsurveil/backend/core/chatlog"
)

type chatLogRepository struct {
	db *DB
}

var _ chatlog.Repository = (*chatLogRepository)(nil) // interface compliance check

func NewChatLogRepository(db *DB) *chatLogRepository {
	return &chatLogRepository{db: db}
}

// find must be called with the lock held.
func (repo *chatLogRepository) find(joinCode, messageID string) *chatlog.ChatLog {
	for _, c := range repo.db.chatLogs {
		if c.JoinCode == joinCode && c.MessageID == messageID {
			return c
		}
	}
	return nil
}

func (repo *chatLogRepository) CreateChatLog(_ context.Context, c chatlog.ChatLog, _ ...core.DBExecutor) (chatlog.ChatLog, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if repo.find(c.JoinCode, c.MessageID) != nil {
		return chatlog.ChatLog{}, chatlog.ErrMessageExists
	}
	c.ID = repo.db.nextPK()
	repo.db.chatLogs[c.ID] = &c
	return c, nil
}

func (repo *chatLogRepository) GetChatLog(_ context.Context, joinCode, messageID string, _ ...core.DBExecutor) (chatlog.ChatLog, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if c := repo.find(joinCode, messageID); c != nil {
		return *c, nil
	}
	return chatlog.ChatLog{}, chatlog.ErrNotFound
}

func (repo *chatLogRepository) QueryChatLogs(_ context.Context, joinCode string, page chatlog.Page, _ ...core.DBExecutor) ([]chatlog.ChatLog, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	logs := make([]chatlog.ChatLog, 0)
	for _, c := range repo.db.chatLogs {
		if c.JoinCode == joinCode {
			logs = append(logs, *c)
		}
	}
	sort.Slice(logs, func(i, j int) bool { return chatLogLess(logs[i], logs[j]) })

	if page.Offset >= len(logs) {
		return []chatlog.ChatLog{}, nil
	}
	logs = logs[page.Offset:]
	if page.Limit > 0 && page.Limit < len(logs) {
		logs = logs[:page.Limit]
	}
	return logs, nil
}

// chatLogLess orders by sent_at (nulls last), then created_at, then id.
func chatLogLess(a, b chatlog.ChatLog) bool {
	if a.SentAt.Valid != b.SentAt.Valid {
		return a.SentAt.Valid
	}
	if a.SentAt.Valid && !a.SentAt.Time.Equal(b.SentAt.Time) {
		return a.SentAt.Time.Before(b.SentAt.Time)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
