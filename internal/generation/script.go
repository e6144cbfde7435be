package generation

import "context"

// ScriptRequest asks a language model for a video script.
type ScriptRequest struct {
	Topic           string
	Style           string
	DurationSeconds int
}

// ScriptWriter drafts scripts from a topic.
type ScriptWriter interface {
	WriteScript(ctx context.Context, req ScriptRequest) (string, error)
}
