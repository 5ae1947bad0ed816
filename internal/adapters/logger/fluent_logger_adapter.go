package logger_adapter

import (
	"fmt"
	"log/slog"
	"time"

	"outreach-service/internal/core/port"
)

// FluentPoster - то, что нужно адаптеру от клиента fluentd
type FluentPoster interface {
	Post(tag string, message interface{}) error
	Close() error
}

// FluentLoggerAdapter отправляет записи в Fluent Bit, тег = уровень
type FluentLoggerAdapter struct {
	client   FluentPoster
	fields   port.Fields
	minLevel slog.Level
}

func NewFluentLoggerAdapter(client FluentPoster, minLevel slog.Leveler) (*FluentLoggerAdapter, error) {
	if client == nil {
		return nil, fmt.Errorf("fluent client cannot be nil")
	}
	level := slog.LevelInfo
	if minLevel != nil {
		level = minLevel.Level()
	}
	return &FluentLoggerAdapter{client: client, fields: port.Fields{}, minLevel: level}, nil
}

func (a *FluentLoggerAdapter) merged(fields port.Fields) port.Fields {
	out := make(port.Fields, len(a.fields)+len(fields)+3)
	for k, v := range a.fields {
		out[k] = v
	}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func (a *FluentLoggerAdapter) post(level slog.Level, tag, msg string, err error, fields port.Fields) {
	if level < a.minLevel {
		return
	}
	data := a.merged(fields)
	if err != nil {
		data["error"] = err.Error()
	}
	data["level"] = tag
	data["message"] = msg
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)

	// потеря записи лога не должна ронять сервис
	_ = a.client.Post(tag, data)
}

func (a *FluentLoggerAdapter) Info(msg string, fields port.Fields) {
	a.post(slog.LevelInfo, "info", msg, nil, fields)
}

func (a *FluentLoggerAdapter) Warn(msg string, fields port.Fields) {
	a.post(slog.LevelWarn, "warn", msg, nil, fields)
}

func (a *FluentLoggerAdapter) Error(msg string, err error, fields port.Fields) {
	a.post(slog.LevelError, "error", msg, err, fields)
}

func (a *FluentLoggerAdapter) Debug(msg string, fields port.Fields) {
	a.post(slog.LevelDebug, "debug", msg, nil, fields)
}

func (a *FluentLoggerAdapter) WithFields(fields port.Fields) port.LoggerPort {
	return &FluentLoggerAdapter{client: a.client, fields: a.merged(fields), minLevel: a.minLevel}
}

func (a *FluentLoggerAdapter) Close() error {
	return a.client.Close()
}
