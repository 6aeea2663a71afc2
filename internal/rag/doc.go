// Package rag implements the knowledge base tier: embedding, vector
// indexing and nearest-neighbour retrieval over curated math problems.
//
// A Retriever owns an Embedder and a VectorIndex. Entries are loaded from a
// JSON or YAML dataset (or the built-in sample), embedded concurrently and
// swapped into the index as a full snapshot. Two index backends exist: an
// in-process MemoryIndex and a WeaviateIndex.
package rag
