/*
Package ports defines the driven ports (interfaces) of the eora assistant.

These interfaces decouple the retrieval pipeline from external implementations, allowing
the assistant to work with various model providers, storage backends and front ends.

# Key Interfaces

  - ChatModel / Embedder: Language model and embedding providers (OpenAI, local).
  - DocumentSource: Anything that yields documents to index (files, markdown notes, web).
  - ConversationStore: Persists chat histories (memory, file, Redis, SQLite).
  - DistributedLocker: Coordinates concurrent access to a session across replicas.
  - IndexStore: Keeps a snapshot of the vector index between restarts.
  - Assistant: The driving port used by the HTTP and MCP adapters.
*/
package ports
