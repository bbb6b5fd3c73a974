// Package sl holds small helpers for building slog attributes so that
// errors and operation names are logged under the same keys everywhere.
package sl

import "log/slog"

// Err returns an slog.Attr with key "error" and the error text as value.
//
//	log.Error("failed to verify payment", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Op returns the attribute that names the operation a log line belongs to.
func Op(op string) slog.Attr {
	return slog.String("op", op)
}
