/*
Package log provides structured logging for agentctl using zerolog.

A single global Logger is configured once by the command layer:

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: false,
	})

Output goes to stderr by default. Stdout is reserved for the result
document, so a log line never corrupts machine-readable output.

Child loggers attach context fields:

	logger := log.WithResource("Workload", "prod/nginx")
	logger.Info().Str("action", "update").Msg("Applied change")

	runLog := log.WithRunID(runID)

Before Init the Logger discards everything, which keeps tests quiet.

# Levels

  - debug: every reconciliation phase transition, request URLs, unmapped
    remote attributes
  - info: mutations issued and their outcome
  - warn: recoverable problems such as a journal that cannot be opened
  - error: failures that end the command

The console format uses RFC3339 timestamps; JSON output suits log shippers.
*/
package log
