// Package llm defines the provider-neutral conversation model and the normalized
// assistant event stream.
//
// A Provider turns a Context (system prompt, ordered messages, tool definitions) into an
// EventStream. Events follow a fixed lifecycle:
//
//	start
//	  (text_start text_delta* text_end
//	  | thinking_start thinking_delta* thinking_end
//	  | toolcall_start toolcall_delta* toolcall_end)*
//	done | error
//
// Every event carries a snapshot of the AssistantMessage being built. Usage counters
// are snapshots too: providers overwrite them and call Usage.Recompute, never add.
package llm
