// Package logx configures cronlite's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//
// Loggers are values and are passed to every component explicitly.
package logx
