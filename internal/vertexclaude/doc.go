// Package vertexclaude streams Anthropic Claude models hosted on Google Cloud Vertex AI
// as normalized llm events.
//
// The provider handles:
//
//   - Message conversion: host turns become Anthropic messages. Consecutive tool results
//     are merged into one user message, images are dropped for text-only models, thinking
//     without a signature is replayed as text, and the last user block is marked for
//     ephemeral prompt caching.
//
//   - Streaming: Anthropic SSE events are translated into start/delta/end events per
//     content block. Anthropic block indices are correlated with output positions while
//     a block is open; tool-call arguments are reparsed from the accumulated partial JSON
//     on every fragment.
//
//   - Accounting: usage snapshots overwrite the counters, and cost is recomputed from the
//     model's price table after every change.
//
// Failures never surface as Go errors from Stream. They end the stream with a single
// error event whose stop reason is "aborted" when the caller cancelled, "error" otherwise.
// Nothing is retried.
package vertexclaude
