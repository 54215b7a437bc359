package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	Log *zap.Logger
)

func init() {
	// Nop until Init so packages can log safely in tests
	Log = zap.NewNop()
}

// Init initializes the global logger
func Init(env string) {
	var config zap.Config

	if env == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var err error
	Log, err = config.Build(zap.AddCallerSkip(1)) // report the caller of logger.Info, not this wrapper
	if err != nil {
		panic(err)
	}

	zap.ReplaceGlobals(Log)
}

// Sync flushes any buffered log entries
func Sync() {
	_ = Log.Sync()
}

func Info(msg string, fields ...zap.Field) {
	Log.Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	Log.Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	Log.Error(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	Log.Fatal(msg, fields...)
}

func Debug(msg string, fields ...zap.Field) {
	Log.Debug(msg, fields...)
}

// AsynqLogger routes asynq's internal logging through zap.
type AsynqLogger struct {
	log *zap.SugaredLogger
}

func NewAsynqLogger() *AsynqLogger {
	return &AsynqLogger{log: Log.WithOptions(zap.AddCallerSkip(1)).Sugar().Named("asynq")}
}

func (l *AsynqLogger) Debug(args ...interface{}) { l.log.Debug(args...) }
func (l *AsynqLogger) Info(args ...interface{})  { l.log.Info(args...) }
func (l *AsynqLogger) Warn(args ...interface{})  { l.log.Warn(args...) }
func (l *AsynqLogger) Error(args ...interface{}) { l.log.Error(args...) }

// Fatal must not return, asynq relies on it.
func (l *AsynqLogger) Fatal(args ...interface{}) {
	l.log.Fatal(fmt.Sprint(args...))
}
