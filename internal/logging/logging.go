package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger 是全局日志实例，Init 之前输出为 JSON 到 stdout。
var Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Config 描述日志输出方式。
type Config struct {
	Level      string
	JSONOutput bool
	Output     io.Writer
}

// Init 根据配置重建全局 Logger。
func Init(cfg Config) {
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
		return
	}

	Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        output,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()
}

// ParseLevel 将字符串级别转换为 zerolog 级别，无法识别时回退到 info。
func ParseLevel(level string) zerolog.Level {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}

// WithComponent 返回带 component 字段的子 logger。
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}
