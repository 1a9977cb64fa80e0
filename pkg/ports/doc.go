/*
Package ports defines the driven ports (interfaces) of the lettergraph engine.

These interfaces decouple evaluation from the systems that store graphs, hold
content and serve member data, so the same engine runs over files, a loam
repository, Redis or plain memory.

# Key Interfaces

  - GraphLoader: loads graph documents by id (file, memory, loam).
  - GraphCache: keeps loaded documents for a bounded time (memory, Redis).
  - ContentRepository: resolves block and component bodies by id and variant.
  - DataProvider: answers data nodes (query, api_call, push_data, fhir_query).
  - Evaluator: what driving adapters (HTTP, MCP, CLI) need from the engine.
*/
package ports
