package jobs

import (
	"reflect"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// NewLoggingWrapper 为每次执行记录开始与结束日志，并附带唯一的 execution_id。
func NewLoggingWrapper(logger zerolog.Logger) cron.JobWrapper {
	return func(j cron.Job) cron.Job {
		return cron.FuncJob(func() {
			jobLogger := logger.With().
				Str("job_name", jobName(j)).
				Str("execution_id", uuid.New().String()).
				Logger()

			start := time.Now()
			jobLogger.Info().Msg("job execution started")
			j.Run()
			jobLogger.Info().Dur("duration", time.Since(start)).Msg("job execution finished")
		})
	}
}

// NewPanicRecoveryWrapper 捕获任务 panic 并记录堆栈，避免拖垮整个进程。
func NewPanicRecoveryWrapper(logger zerolog.Logger) cron.JobWrapper {
	return func(j cron.Job) cron.Job {
		return cron.FuncJob(func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error().
						Str("job_name", jobName(j)).
						Interface("panic", r).
						Str("stack_trace", string(debug.Stack())).
						Msg("job panicked")
				}
			}()
			j.Run()
		})
	}
}

func jobName(j cron.Job) string {
	if named, ok := j.(interface{ Name() string }); ok {
		return named.Name()
	}
	t := reflect.TypeOf(j)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// cronLogger adapts zerolog to cron.Logger for DelayIfStillRunning and friends.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
