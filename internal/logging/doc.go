// Package logging provides structured logging with message masking.
//
// # Overview
//
// Logging package wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - Automatic context field injection (trace_id, span_id, source)
//   - Masking of entry messages and string fields through a Masker
//
// # Usage
//
// Create a masking logger from config:
//
//	engine := masking.NewStore(path, masking.DefaultOptions()).Engine()
//	logger, err := logging.NewLogger(logging.NewDefaultConfig(), engine)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info(ctx, "login password=Secr3t! ok")
//
// Output:
//
//	{"level":"info","ts":"2025-11-24T10:15:30Z","msg":"login password=* ok","service":"logmask"}
//
// Hosts that build their own zap core wrap it instead:
//
//	core = logging.NewMaskingCore(core, engine, true)
//
// # Testing
//
// Use TestLogger for test assertions:
//
//	tl := logging.NewMaskedTestLogger(engine)
//	tl.Info(ctx, "password=hunter2")
//	tl.AssertLogged(t, zapcore.InfoLevel, "password=*")
//	tl.AssertNotLeaked(t, "hunter2")
//
// # Concurrency Safety
//
// Logger is safe for concurrent use as long as the Masker is. Child loggers
// (With, Named) are independent and do not affect parent or siblings.
package logging
