// Package llm provides the model gateway: an OpenAI-compatible chat
// completions client with retry and exponential backoff, plus helpers that
// recover JSON payloads from free-form model replies.
//
// The Client is immutable after construction and may be shared by any number
// of goroutines. Each call makes up to Config.MaxRetries attempts; an empty
// completion counts as a failed attempt. Backoff starts at one second and
// doubles after every failure, and no sleep follows the final attempt.
package llm
