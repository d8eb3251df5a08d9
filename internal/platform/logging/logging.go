package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Config captures logging configuration options.
type Config struct {
	Level    string `yaml:"log_level" json:"log_level"`
	Dir      string `yaml:"log_dir" json:"log_dir"`
	Filename string `yaml:"log_file" json:"log_file"`
}

var (
	colorReset = "\x1b[0m"
	colorTime  = "\x1b[90m"
	colorDebug = "\x1b[36m"
	colorInfo  = "\x1b[32m"
	colorWarn  = "\x1b[33m"
	colorError = "\x1b[31m"
)

// moduleColors maps log tags to console colors so the interleaved
// subsystems stay readable.
var moduleColors = map[string]string{
	"[BOOT]":    "\x1b[96m",
	"[HTTP]":    "\x1b[95m",
	"[TOKEN]":   "\x1b[94m",
	"[ISSUER]":  "\x1b[36m",
	"[GATEWAY]": "\x1b[92m",
	"[EVENTS]":  "\x1b[97m",
	"[STORE]":   "\x1b[93m",
}

// textHandler renders colored single-line console output.
type textHandler struct {
	writer io.Writer
	level  slog.Level
	mu     sync.Mutex
}

func (h *textHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *textHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	timeStr := r.Time.Format("2006-01-02 15:04:05.000")

	var levelStr, levelColor string
	switch r.Level {
	case slog.LevelDebug:
		levelStr, levelColor = "DEBUG", colorDebug
	case slog.LevelWarn:
		levelStr, levelColor = "WARN", colorWarn
	case slog.LevelError:
		levelStr, levelColor = "ERROR", colorError
	default:
		levelStr, levelColor = "INFO", colorInfo
	}

	msg := r.Message
	var output string
	moduleColor := ""
	for tag, color := range moduleColors {
		if strings.HasPrefix(msg, tag) {
			moduleColor = color
			break
		}
	}
	if moduleColor != "" {
		output = fmt.Sprintf("%s[%s]%s %s%s%s",
			colorTime, timeStr, colorReset,
			moduleColor, msg, colorReset)
	} else {
		output = fmt.Sprintf("%s[%s]%s %s[%s]%s %s",
			colorTime, timeStr, colorReset,
			levelColor, levelStr, colorReset,
			msg)
	}

	if r.NumAttrs() > 0 {
		output += " {"
		r.Attrs(func(a slog.Attr) bool {
			output += fmt.Sprintf(" %s=%v", a.Key, a.Value)
			return true
		})
		output += " }"
	}
	output += "\n"

	_, err := h.writer.Write([]byte(output))
	return err
}

func (h *textHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *textHandler) WithGroup(string) slog.Handler { return h }

// Logger writes colored text to the console and, when a directory is
// configured, JSON records to a log file.
type Logger struct {
	config     Config
	textLogger *slog.Logger
	jsonLogger *slog.Logger
	logFile    *os.File
}

func parseLevel(configLevel string) slog.Level {
	switch strings.ToLower(configLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a logger from the provided configuration.
func New(cfg Config) (*Logger, error) {
	level := parseLevel(cfg.Level)

	l := &Logger{
		config: cfg,
		textLogger: slog.New(&textHandler{
			writer: os.Stdout,
			level:  level,
		}),
	}

	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		filename := cfg.Filename
		if filename == "" {
			filename = "streamgate.log"
		}
		file, err := os.OpenFile(
			filepath.Join(cfg.Dir, filename),
			os.O_APPEND|os.O_CREATE|os.O_WRONLY,
			0o644,
		)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		l.logFile = file
		l.jsonLogger = slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{
			Level: level,
		}))
	}

	return l, nil
}

// Slog exposes the structured console logger for integrations that
// expect a *slog.Logger.
func (l *Logger) Slog() *slog.Logger {
	return l.textLogger
}

func (l *Logger) log(level slog.Level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.textLogger.Log(context.Background(), level, msg)
	if l.jsonLogger != nil {
		l.jsonLogger.Log(context.Background(), level, msg)
	}
}

func (l *Logger) Debug(format string, args ...any) { l.log(slog.LevelDebug, format, args...) }
func (l *Logger) Info(format string, args ...any)  { l.log(slog.LevelInfo, format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.log(slog.LevelWarn, format, args...) }
func (l *Logger) Error(format string, args ...any) { l.log(slog.LevelError, format, args...) }

// Tagged variants prefix messages with a subsystem tag picked up by the
// console color table.

func (l *Logger) DebugTag(tag, format string, args ...any) {
	l.Debug("["+tag+"] "+format, args...)
}

func (l *Logger) InfoTag(tag, format string, args ...any) {
	l.Info("["+tag+"] "+format, args...)
}

func (l *Logger) WarnTag(tag, format string, args ...any) {
	l.Warn("["+tag+"] "+format, args...)
}

func (l *Logger) ErrorTag(tag, format string, args ...any) {
	l.Error("["+tag+"] "+format, args...)
}

// Close releases the log file if one was opened.
func (l *Logger) Close() error {
	if l.logFile != nil {
		return l.logFile.Close()
	}
	return nil
}
