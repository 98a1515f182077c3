package notify

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/nikolayk812/cartstore/internal/domain"
	"github.com/nikolayk812/cartstore/internal/port"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type logNotifier struct {
	logger *zap.Logger
}

// NewLog reports notifications as log entries, danger as error and warning as warn.
func NewLog(logger *zap.Logger) port.Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &logNotifier{logger: logger}
}

func (n *logNotifier) Notify(_ context.Context, message string, severity domain.Severity) {
	n.logger.Log(levelOf(severity), message, zap.String("severity", string(severity)))
}

func levelOf(severity domain.Severity) zapcore.Level {
	switch severity {
	case domain.SeverityDanger:
		return zapcore.ErrorLevel
	case domain.SeverityWarning:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

var styles = map[domain.Severity]lipgloss.Style{
	domain.SeveritySuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	domain.SeverityInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
	domain.SeverityWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	domain.SeverityDanger:  lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
}

type consoleNotifier struct {
	w io.Writer
}

func NewConsole(w io.Writer) port.Notifier {
	return &consoleNotifier{w: w}
}

func (n *consoleNotifier) Notify(_ context.Context, message string, severity domain.Severity) {
	style, ok := styles[severity]
	if !ok {
		style = styles[domain.SeverityInfo]
	}

	_, _ = fmt.Fprintln(n.w, style.Render(fmt.Sprintf("[%s] %s", severity, message)))
}

type multi []port.Notifier

// Multi fans a notification out to every notifier in order.
func Multi(notifiers ...port.Notifier) port.Notifier {
	return multi(notifiers)
}

func (m multi) Notify(ctx context.Context, message string, severity domain.Severity) {
	for _, n := range m {
		n.Notify(ctx, message, severity)
	}
}
