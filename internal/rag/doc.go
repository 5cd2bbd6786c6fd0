// Package rag implements the retrieval pipeline that grounds coaching
// answers in guideline evidence: heading-aware chunking, directory indexing
// with filename-derived metadata, ranked retrieval with bounded relevance
// scores, query rewriting, and a corrective critic loop that re-retrieves
// with relaxed filters when an answer is poorly supported.
//
// The package is split along the pipeline stages:
//
//   - Chunker (chunk.go) splits documents on headings and size budget
//   - ParseDocMeta (metadata.go) derives source/condition/topic from filenames
//   - Indexer (indexer.go) walks the corpus and feeds the evidence store
//   - Retriever (retriever.go) serves ranked, filtered evidence
//   - Rewriter (rewrite.go) turns user questions into guideline-style queries
//   - Critic and CorrectiveLoop (critic.go, loop.go) gate answers on support
//
// All stages are pure or read-only except the Indexer, which is the sole
// writer and the only component allowed to clear the evidence collection.
package rag
