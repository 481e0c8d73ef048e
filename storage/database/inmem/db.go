package inmemdb

import (
	"sync"

	"github.com/examsurveil/backend/core/attendance"
	"github.com/examsurveil/backend/core/chatlog"
	"github.com/examsurveil/backend/core/meeting"
	"github.com/examsurveil/backend/core/user"
)

// DB is an in-memory store honouring the same unique constraints as the SQL schema.
// A single lock guards all tables so cross-table checks stay consistent.
type DB struct {
	mu sync.RWMutex

	users      map[int64]*user.User
	meetings   map[int64]*meeting.ScheduledMeeting
	sessions   map[int64]*attendance.Session
	chatLogs   map[int64]*chatlog.ChatLog
	pkSequence int64
}

func NewDB() *DB {
	db := &DB{}
	db.Reset()
	return db
}

// Reset empties all tables.
func (db *DB) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.users = make(map[int64]*user.User)
	db.meetings = make(map[int64]*meeting.ScheduledMeeting)
	db.sessions = make(map[int64]*attendance.Session)
	db.chatLogs = make(map[int64]*chatlog.ChatLog)
}

// nextPK must be called with the write lock held.
func (db *DB) nextPK() int64 {
	db.pkSequence++
	return db.pkSequence
}
