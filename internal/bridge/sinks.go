package bridge

import (
	"go.uber.org/zap"
)

// LogSink writes notifications to logger.
func LogSink(logger *zap.Logger) Sink {
	return func(n Notification) {
		fields := []zap.Field{zap.String("id", n.ID), zap.String("level", string(n.Level))}
		switch n.Level {
		case LevelError:
			logger.Warn(n.Message, fields...)
		default:
			logger.Info(n.Message, fields...)
		}
	}
}

// BroadcastSink forwards notifications to every client of the host's dispatcher as MCP
// logging messages. Notifications raised before Bind are not broadcast.
func BroadcastSink(h *Host) Sink {
	return func(n Notification) {
		dispatcher := h.Dispatcher()
		if dispatcher == nil {
			return
		}
		dispatcher.SendNotificationToAllClients("notifications/message", map[string]any{
			"level":  mcpLogLevel(n.Level),
			"logger": h.App(),
			"data": map[string]any{
				"id":      n.ID,
				"message": n.Message,
				"type":    string(n.Level),
			},
		})
	}
}

func mcpLogLevel(level Level) string {
	switch level {
	case LevelSuccess:
		return "notice"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}
