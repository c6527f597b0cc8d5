// Package utils exposes reusable helpers consumed by the CLI entrypoint and commands.
//
// It houses the ConfigurationLoader and LoggerFactory abstractions that
// integrate Viper, dotenv files, environment variables, and zap logging,
// the CommandContextAccessor carrying per-invocation values, and the
// HomePathExpander resolving tilde shortcuts in configured paths.
package utils
