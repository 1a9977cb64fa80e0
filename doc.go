/*
Package lettergraph is a logic graph evaluation engine for regulated healthcare
correspondence.

Authors build a directed acyclic graph of typed rule nodes (conditions,
switches, loops, computed variables, content blocks, channel and language
branches, compliance rules). The engine walks that graph against a member,
claim or enrollment data context and decides, deterministically, which content
ends up in a letter.

# Concept

A graph is compiled once into an immutable snapshot and can then serve any
number of concurrent requests. Each request gets its own variable scope,
compliance checker and result. Problems inside a node (a failing expression,
missing content, a data provider timeout) never stop the letter: they are
recorded as warnings and the node takes its false or error branch. Only a
structurally invalid graph, an unusable request or cancellation is returned as
an error. Blocking compliance violations abort the letter and are reported in
the result.

# Key Features

  - Deterministic Evaluation: the same graph, data and AsOf date always render the same letter.
  - Hexagonal Architecture: graphs, content and member data come from ports (file, loam, memory, Redis, HTTP).
  - Compliance Gate: rules register requirements that are checked after traversal.
  - Strict Contracts: node configs are schema-validated when a graph is loaded.

# Usage

	eng, err := lettergraph.New("./graphs",
		lettergraph.WithContentDir("./content"),
		lettergraph.WithProvider(providers),
	)
	if err != nil {
		log.Fatal(err)
	}

	res, err := eng.Evaluate(ctx, domain.Request{
		GraphID: "claim-denial",
		Data:    json.RawMessage(`{"claim":{"status":"DENIED"}}`),
		Channel: "mail",
		Format:  "html",
	})
	if err != nil {
		log.Fatal(err)
	}
	if res.Aborted {
		log.Printf("letter blocked: %s", res.AbortReason)
	}
*/
package lettergraph
