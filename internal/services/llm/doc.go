// Package llm rewrites transcript text through a hosted language model.
// Two providers speak the OpenRouter chat-completions and Anthropic messages
// APIs behind one interface; a shared retry loop classifies HTTP failures so
// credential problems abort immediately while rate limits and server errors
// back off and try again.
package llm
