package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible
	// default or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptChatSystem is the system prompt for grounded question answering.
	// This prompt has no format placeholders.
	PromptChatSystem = "chat_system"

	// PromptContextualize rewrites a follow-up question into a standalone
	// one using conversation history. Expects %s (history) and %s (question).
	PromptContextualize = "contextualize_question"

	// PromptContextQA frames retrieved chunks and the question for the
	// answer call. Expects %s (context) and %s (question).
	PromptContextQA = "context_qa"

	// PromptDocumentComparison asks for a section-wise JSON diff of two
	// documents. Expects %s (combined documents).
	PromptDocumentComparison = "document_comparison"
)
