// Package llm implements the OpenAI-compatible chat-completions client used
// for story generation. The client retries transient failures (timeouts,
// 429/5xx, empty content) with capped exponential backoff and tolerates the
// response-schema quirks of compatible providers: streaming deltas returned
// for non-streaming requests and legacy completion-style text fields.
package llm
