// Package logger wraps zap for the bridge:
//   - a global sugared logger with console or JSON encoding,
//   - context helpers (ToContext/FromContext/WithName/WithKV/WithFields),
//   - level and format parsing,
//   - convenience functions (Infof, ErrorKV, etc.).
//
// Handlers derive a scoped logger from their context so that event ids and
// request fields follow a message through the policy engine.
package logger
