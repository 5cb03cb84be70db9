// Package logger provides structured logging over zerolog.
//
// Loggers are tagged per component and can be enriched from a context
// carrying a request ID or an active trace span.
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "json"
//	  output: "stderr"
//
// # Usage
//
//	log := logger.WithComponent("pmda").WithContext(ctx)
//	log.Debug("request sent", logger.Fields(logger.FieldMethod, "GET", logger.FieldPath, path))
package logger
