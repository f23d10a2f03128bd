/*
Package log provides structured logging for nostrd using zerolog.

It wraps github.com/rs/zerolog with a package-level Logger, a small
Config{Level, JSONOutput, Output}, and a handful of With* helpers that
attach connection/event/subscription context to a child logger, mirroring
the shape of a typical relay's per-request logging.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	storeLog := log.WithComponent("storage")
	storeLog.Info().Uint64("offset", offset).Msg("event appended")

	connLog := log.WithConnID(connID)
	connLog.Debug().Str("sub_id", subID).Msg("REQ received")

Storage-core code itself never logs (spec §7: errors are returned, not
logged-and-swallowed); only the relay shell layers call into this
package.
*/
package log
