package logger

import "os"

// defLogger is the fallback Logger for any ecrterm component that isn't
// handed one explicitly (engine.WithLogger, session.Config.Logger). Its
// level can be raised in the field without a rebuild by setting ECRTERM_LOG_LEVEL to "debug", "warn", "error", or
// "fatal"; anything else, including unset, keeps InfoLevel.
var defLogger = NewSlog(levelFromEnv(), false)

func levelFromEnv() LogLevel {
	switch os.Getenv("ECRTERM_LOG_LEVEL") {
	case "debug":
		return DebugLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "fatal":
		return FatalLevel
	default:
		return InfoLevel
	}
}

func Debug(msg string, keysAndValues ...any) {
	defLogger.Debug(msg, keysAndValues...)
}

func Info(msg string, keysAndValues ...any) {
	defLogger.Info(msg, keysAndValues...)
}

func Warn(msg string, keysAndValues ...any) {
	defLogger.Warn(msg, keysAndValues...)
}

func Error(msg string, keysAndValues ...any) {
	defLogger.Error(msg, keysAndValues...)
}

func Fatal(msg string, keysAndValues ...any) {
	defLogger.Fatal(msg, keysAndValues...)
}

func SetLevel(level LogLevel) {
	defLogger.SetLevel(level)
}

func GetLogger() Logger {
	return defLogger
}

func With(keyValues ...any) Logger {
	return defLogger.With(keyValues...)
}
