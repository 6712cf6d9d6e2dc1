// Package logger provides structured logging on top of zerolog.
//
// Loggers are created from a Config and can write JSON or console output to
// stdout, stderr or a size-rotated file. Component-scoped loggers are looked
// up by name:
//
//	log := logger.Get("orchestrator")
//	log.Info("request finished", logger.Fields("request_id", id, "state", "succeeded"))
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//	  output: "/var/log/voxkit/voxkit.log"
//	  max_size: 100
package logger
