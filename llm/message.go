package llm

import "github.com/blixt/skillflow/content"

type Message struct {
	// Role can be "system", "user" or "assistant".
	Role string
	// Content is the message content.
	Content content.Content
}

// UserText is shorthand for a plain text user message.
func UserText(text string) Message {
	return Message{Role: "user", Content: content.FromText(text)}
}
