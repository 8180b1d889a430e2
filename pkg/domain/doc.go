/*
Package domain contains the core models of the eora assistant.

It defines the knowledge chunks the assistant retrieves from, the answers it produces
and the conversations it keeps. The package is free of I/O and persistence concerns,
following Hexagonal Architecture principles.

# Key Entities

  - Document: A chunk of knowledge (file fragment, web page, markdown note) plus metadata.
  - Source: The typed view of a document's metadata, used for citations.
  - Answer: The generated reply, its sources and the complexity level it was built for.
  - Conversation: The ordered chat history of a session.
*/
package domain
