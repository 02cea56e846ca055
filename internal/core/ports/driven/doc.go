// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Extractor / ExtractorRegistry: Turn uploaded bytes into normalised text
//   - IndexStore / IndexHandle: Per-session persisted similarity index
//   - EmbeddingService: Generates vector embeddings for chunks and queries
//   - LLMService: Language model operations for answers and comparisons
//   - ConversationStore: Conversation history persistence
//   - ConfigStore: Application configuration
//   - PromptStore: Prompt template loading
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or extractor package
package driven
