// Package logging provides structured logging for whiterabbit runs.
//
// This package wraps Go's log/slog to write JSON-formatted debug logs. Every
// hunt gets a UUID, and every probe logs the revision it is looking at, so a
// single hunt can be reconstructed from hunt.log after the fact even when
// several runs share the file.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger(".whiterabbit/logs", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	huntLog := logger.WithHunt(id).WithPhase("search")
//	huntLog.WithRevision(rev).Info("probe finished", "present", true)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"probe finished","hunt_id":"...","phase":"search","revision":"...","present":true}
//
// # Log Rotation
//
// hunt.log is rotated by size through [RotatingWriter]. Rotated files are
// named hunt.log.1 (newest) to hunt.log.N, gzip compressed when configured.
//
// # Reading Logs Back
//
// [ReadEntries] parses the file and [Filter] narrows it down by level, time,
// hunt ID or a regular expression. The logs subcommand is built on these.
//
// # Testing
//
// Use [NopLogger] to discard output, or [NewWriterLogger] with a
// bytes.Buffer to assert on what was logged.
package logging
