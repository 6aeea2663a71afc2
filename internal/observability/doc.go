// Package observability provides structured logging and Prometheus metrics
// for the math agent.
//
// Loggers are zap based and carry the request ID taken from the context.
// Metrics are registered against a caller supplied registerer so tests can
// use an isolated registry.
package observability
