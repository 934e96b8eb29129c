package rag

// DefaultMode is the workspace chat mode used when none is configured.
const DefaultMode = "query"

// ChatRequest is the body of a stream-chat request.
type ChatRequest struct {
	Message string `json:"message"`
	Mode    string `json:"mode"`
}

// NewChatRequest builds a request for message, defaulting mode to
// DefaultMode.
func NewChatRequest(message, mode string) ChatRequest {
	if mode == "" {
		mode = DefaultMode
	}
	return ChatRequest{Message: message, Mode: mode}
}
