package redisq

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
)

// asynqLogger routes asynq's internal logging into slog.
type asynqLogger struct {
	logger *slog.Logger
}

var _ asynq.Logger = (*asynqLogger)(nil)

func newAsynqLogger(logger *slog.Logger) *asynqLogger {
	return &asynqLogger{logger: logger.With("source", "asynq")}
}

func (l *asynqLogger) Debug(args ...interface{}) { l.log(slog.LevelDebug, args) }
func (l *asynqLogger) Info(args ...interface{})  { l.log(slog.LevelInfo, args) }
func (l *asynqLogger) Warn(args ...interface{})  { l.log(slog.LevelWarn, args) }
func (l *asynqLogger) Error(args ...interface{}) { l.log(slog.LevelError, args) }

// Fatal logs and exits, matching asynq's default logger.
func (l *asynqLogger) Fatal(args ...interface{}) {
	l.log(slog.LevelError, args)
	os.Exit(1)
}

func (l *asynqLogger) log(level slog.Level, args []interface{}) {
	l.logger.Log(context.Background(), level, fmt.Sprint(args...))
}

// ParseRedisURL converts a redis:// URL into asynq connection options.
func ParseRedisURL(url string) (asynq.RedisConnOpt, error) {
	opt, err := asynq.ParseRedisURI(url)
	if err != nil {
		return nil, fmt.Errorf("invalid broker url: %w", err)
	}
	return opt, nil
}
