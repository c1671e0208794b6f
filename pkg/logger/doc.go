// Package logger builds configured slog.Logger instances with context-aware
// attribute injection and a small vocabulary of delivery-domain attributes.
//
// # Basic Usage
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.AppEnv, "notifyd"),
//		logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	logger.SetAsDefault(log)
//
//	log.InfoContext(ctx, "task resolved",
//		logger.TaskID(task.ID),
//		logger.Channel(task.Channel),
//		logger.Attempt(task.AttemptCount),
//	)
//
// Attribute helpers return an empty Attr for nil or empty values, which slog
// drops, so call sites never need nil checks.
package logger
