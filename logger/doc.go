// Package logger provides structured logging for jobflow using zerolog.
//
// Loggers are component-scoped and take their fields as maps so call sites
// stay free of zerolog's builder API:
//
//	log := logger.Get("engine")
//	log.Info("instance resumed", logger.Fields(logger.FieldInstanceID, id))
package logger
