package llm

const extractionInstruction = "Extract the recipe information from the provided content and return it as a JSON object"

// BuildPrompt composes the full prompt: the fixed extraction
// instruction, an optional additional-instructions clause, then the
// raw content verbatim. No truncation is performed here; callers are
// responsible for respecting the model's context limits.
func BuildPrompt(content, instructions string) string {
	system := extractionInstruction
	if instructions != "" {
		system += "\n\nAdditional instructions: " + instructions
	}
	return system + "\n\n" + content
}
