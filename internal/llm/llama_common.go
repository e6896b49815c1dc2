package llm

import "strings"

// LlamaConfig configures the in-process llama.cpp backend.
type LlamaConfig struct {
	ModelID   string
	ModelPath string
	Context   int
	Threads   int
	GPULayers int
}

// transcriptPrompt renders instructions, prior turns and the new prompt as a
// single completion prompt for models without a chat endpoint.
func transcriptPrompt(instructions string, turns [][2]string, prompt string) string {
	var b strings.Builder
	if instructions != "" {
		b.WriteString("### System:\n")
		b.WriteString(instructions)
		b.WriteString("\n\n")
	}
	for _, t := range turns {
		b.WriteString("### User:\n")
		b.WriteString(t[0])
		b.WriteString("\n\n### Assistant:\n")
		b.WriteString(t[1])
		b.WriteString("\n\n")
	}
	b.WriteString("### User:\n")
	b.WriteString(prompt)
	b.WriteString("\n\n### Assistant:\n")
	return b.String()
}
