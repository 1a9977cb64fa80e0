package lettergraph

// Version is the release of the engine. Release builds set it with
// -ldflags "-X github.com/aretw0/lettergraph.Version=...".
var Version = "0.1.0"
