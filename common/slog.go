package common

import "log/slog"

// SlogResetLevel sets the default slog level and returns a reset func,
// pairing well with defer in tests that want quiet logs:
//
//	defer common.SlogResetLevel(slog.Level(slog.LevelWarn + 1))()
func SlogResetLevel(level slog.Level) (reset func()) {
	oldLevel := slog.SetLogLoggerLevel(level)
	return func() {
		slog.SetLogLoggerLevel(oldLevel)
	}
}
