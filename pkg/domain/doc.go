/*
Package domain contains the core models of the lettergraph engine.

It defines the logic graph (nodes, edges, typed node configs), the request and
result of an evaluation, render instructions, compliance rules and the error
taxonomy. This package is kept pure and free of external dependencies like I/O
or persistence, following Hexagonal Architecture principles.

# Key Entities

  - GraphDocument: the external JSON/YAML form of an authored logic graph.
  - Graph: the validated, immutable snapshot the evaluator walks.
  - NodeConfig: the closed, per-type configuration record of a node.
  - RenderInstruction: one element of the ordered output of an evaluation.
  - EvaluationResult: rendered letter content plus violations, warnings and flags.
*/
package domain
