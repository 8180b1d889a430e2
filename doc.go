/*
Package eora is a retrieval-augmented question answering assistant for the
EORA company.

It indexes local documents (PDF, DOCX, HTML, plain text), a markdown knowledge
base and the company web site, retrieves the chunks most similar to a question
and asks a language model to answer from those chunks only. Answers come at one
of three complexity levels:

  - easy: a plain answer.
  - medium: the answer followed by the list of its sources.
  - hard: the answer with inline [n] references.

Conversations are kept per session in a pluggable store (memory, JSON files,
Redis or SQLite), optionally encrypted and with personal data redacted.

# Usage

	cfg, err := config.Load("")
	if err != nil {
		log.Fatal(err)
	}
	assistant, err := eora.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer assistant.Close()

	if _, err := assistant.Index(ctx); err != nil {
		log.Fatal(err)
	}
	reply, err := assistant.Ask(ctx, "", "Что EORA делала для Магнита?", domain.LevelHard)

The same assistant is served over HTTP (pkg/adapters/http), the Model Context
Protocol (pkg/adapters/mcp) and the eora command line (cmd/eora).
*/
package eora
