// Package logging provides structured logging for the parley client.
//
// It wraps log/slog with a JSON handler and a small set of persistent
// attributes so every line written on behalf of a user action can be
// correlated:
//
//	logger, err := logging.NewLogger(dir, "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	log := logger.WithComponent("dispatch").WithAction("open_guild", id)
//	log.Info("channels loaded", "guild_id", "1", "count", 12)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"channels loaded","component":"dispatch","action":"open_guild","action_id":"...","guild_id":"1","count":12}
//
// # Rotation
//
// [NewLoggerWithRotation] writes through a [RotatingWriter], which renames
// parley.log to parley.log.1 once it passes MaxSizeMB and keeps MaxBackups
// older files, optionally gzip compressed.
//
// # Secrets
//
// Tokens and passwords must never be passed as attributes. Callers log the
// presence of a token ("has_token") and never its value.
//
// # Testing
//
// Use [NopLogger] to discard output.
package logging
