// Package llm provides an OpenRouter-compatible chat completion client.
//
// Requests are sent to each configured model in order until one returns
// usable content. Within a single model the client retries HTTP 408/429/5xx,
// empty completions and network timeouts with exponential backoff, honoring
// Retry-After. A token-bucket limiter spaces requests when
// requests_per_minute is set.
//
// DecodeLLMJSON and ExtractJSON recover JSON payloads that models wrap in
// code fences or surrounding prose.
package llm
