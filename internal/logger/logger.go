package logger

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

var flitLogger atomic.Pointer[FlitLogger]

func init() {
	flitLogger.Store(NewFlitLogger())
}

// FlitLogger wraps slog and additionally satisfies the printf-style logger
// interfaces of badger and the tail library.
type FlitLogger struct {
	slogger *slog.Logger
}

func NewFlitLogger() *FlitLogger {
	return &FlitLogger{
		slogger: slog.Default(),
	}
}

func Default() *FlitLogger {
	return flitLogger.Load()
}

func SetLogLevel(level slog.Level) {
	slog.SetLogLoggerLevel(level)
}

// slog wrapper

func Debug(msg string, args ...any) {
	flitLogger.Load().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	flitLogger.Load().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	flitLogger.Load().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	flitLogger.Load().Error(msg, args...)
}

func (l *FlitLogger) Debug(msg string, args ...any) {
	l.slogger.Debug(msg, args...)
}

func (l *FlitLogger) Info(msg string, args ...any) {
	l.slogger.Info(msg, args...)
}

func (l *FlitLogger) Warn(msg string, args ...any) {
	l.slogger.Warn(msg, args...)
}

func (l *FlitLogger) Error(msg string, args ...any) {
	l.slogger.Error(msg, args...)
}

// badger.Logger

func (l *FlitLogger) Errorf(format string, args ...interface{}) {
	l.slogger.Error(fmt.Sprintf(format, args...))
}

func (l *FlitLogger) Warningf(format string, args ...interface{}) {
	l.slogger.Warn(fmt.Sprintf(format, args...))
}

func (l *FlitLogger) Infof(format string, args ...interface{}) {
	l.slogger.Info(fmt.Sprintf(format, args...))
}

func (l *FlitLogger) Debugf(format string, args ...interface{}) {
	l.slogger.Debug(fmt.Sprintf(format, args...))
}

// tail.logger

func (l *FlitLogger) Fatal(v ...interface{}) {
	l.slogger.Error("An error occured", genericPairs(v...)...)
}

func (l *FlitLogger) Fatalf(format string, v ...interface{}) {
	l.slogger.Error(fmt.Sprintf(format, v...))
}

func (l *FlitLogger) Fatalln(v ...interface{}) {
	l.slogger.Error("An error occured", v...)
}

func (l *FlitLogger) Panic(v ...interface{}) {
	l.slogger.Error("", genericPairs(v...)...)
}

func (l *FlitLogger) Panicf(format string, v ...interface{}) {
	l.slogger.Error(fmt.Sprintf(format, v...))
}

func (l *FlitLogger) Panicln(v ...interface{}) {
	l.slogger.Error("An error occured", v...)
}

func (l *FlitLogger) Print(v ...interface{}) {
	l.slogger.Info("", genericPairs(v...)...)
}

func (l *FlitLogger) Printf(format string, v ...interface{}) {
	l.slogger.Info(fmt.Sprintf(format, v...))
}

func (l *FlitLogger) Println(v ...interface{}) {
	l.slogger.Info("", v...)
}

func genericPairs(v ...interface{}) []any {
	pairs := make([]any, 0, len(v)/2)
	for i := 0; i < len(v)-1; i += 2 {
		key, ok := v[i].(string)
		if !ok {
			key = fmt.Sprintf("non_string_key_%d", i)
		}
		pairs = append(pairs, slog.Any(key, v[i+1]))
	}
	return pairs
}
