package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"winr8te-bot/internal/storage"

	"go.uber.org/zap"
)

type Level string

const (
	LevelInfo Level = "info"
	LevelWarn Level = "warn"
	LevelCrit Level = "crit"
)

// Notifier posts an audit line to a chat channel. Wired after the session is
// up, which is why it is set late rather than in the constructor.
type Notifier func(message string)

// Logger records moderation and vote events to the database, mirrors them to
// the structured log, and optionally forwards them to a channel.
type Logger struct {
	store  *storage.Store
	logger *zap.Logger

	mu      sync.Mutex
	guildID string
	notify  Notifier
}

func NewLogger(store *storage.Store, logger *zap.Logger) *Logger {
	return &Logger{store: store, logger: logger}
}

func (l *Logger) SetNotifier(n Notifier) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notify = n
}

// SetGuild records which guild subsequent events belong to. The bot learns
// this from the ready event, after the logger already exists.
func (l *Logger) SetGuild(guildID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.guildID = guildID
}

func (l *Logger) Record(level Level, event, userID, details string) {
	zf := []zap.Field{
		zap.String("event", event),
		zap.String("user_id", userID),
		zap.String("details", details),
	}
	switch level {
	case LevelCrit:
		l.logger.Error("audit", zf...)
	case LevelWarn:
		l.logger.Warn("audit", zf...)
	default:
		l.logger.Info("audit", zf...)
	}

	l.mu.Lock()
	guildID := l.guildID
	notify := l.notify
	l.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.store.AddAuditLog(ctx, storage.AuditLog{
		GuildID:   guildID,
		UserID:    userID,
		Level:     string(level),
		Event:     event,
		Details:   details,
		CreatedAt: time.Now(),
	}); err != nil {
		l.logger.Error("audit persistence failed", zap.Error(err))
	}
	if notify != nil && level != LevelInfo {
		notify(fmt.Sprintf("[%s] %s: %s", level, event, details))
	}
}
