package port

// Fields - структурированные поля записи лога
type Fields map[string]interface{}

// LoggerPort - логгер ядра. Адаптеры: slog (консоль), Fluent Bit и их комбинация.
type LoggerPort interface {
	Debug(msg string, fields Fields)
	Info(msg string, fields Fields)
	Warn(msg string, fields Fields)
	Error(msg string, err error, fields Fields)
	// WithFields возвращает дочерний логгер, поля добавляются к каждой записи
	WithFields(fields Fields) LoggerPort
}
