// Package textgen wraps the chat-completion API used for narrative work:
// idea expansion, script composition, and character analysis. The client
// performs single requests; retry orchestration belongs to the recovery
// coordinator.
package textgen
