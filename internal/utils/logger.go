package utils

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// NewLogger 根日志，带彩色级别标记；level 无法解析时使用 info
func NewLogger(level string) *log.Logger {
	return NewLoggerTo(os.Stderr, level)
}

func NewLoggerTo(w io.Writer, level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	logger := log.NewWithOptions(w, log.Options{
		//ReportCaller:    true,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Level:           lvl,
	})
	logger.SetStyles(styles())
	return logger
}

func styles() *log.Styles {
	s := log.DefaultStyles()
	s.Levels[log.DebugLevel] = badge("DEBUG🔍", "#D3D3D380", "#404040FF")
	s.Levels[log.InfoLevel] = badge("INFO🌟", "#90EE9080", "#006400FF")
	s.Levels[log.WarnLevel] = badge("WARN🃏", "#FFD70080", "#8B4513FF")
	s.Levels[log.ErrorLevel] = badge("ERROR🔥", "#FF0000FF", "#00FFFF00")
	s.Levels[log.FatalLevel] = badge("FATAL⚡️", "#000000FF", "#00FFFF00")
	return s
}

func badge(text, bg, fg string) lipgloss.Style {
	return lipgloss.NewStyle().
		SetString(text).
		Padding(0, 1, 0, 1).
		Background(lipgloss.Color(bg)).
		Foreground(lipgloss.Color(fg)).Bold(true)
}
