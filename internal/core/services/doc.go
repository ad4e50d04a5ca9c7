// Package services implements the engine's driving ports on top of the
// driven ports: recommendations, semantic search, the knowledge
// assistant, rebuilds and the status report.
//
// All serving state (lexical model, embedding matrix, similarity
// ranker, vector indexes) lives in immutable snapshots behind atomic
// pointers. Rebuilds construct a complete new snapshot off to the side
// and swap it in; serving paths never observe partial state.
package services
