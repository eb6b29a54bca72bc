// Package ledger is the durable record of detected violations and their
// live distribution.
//
// Three artifacts live here. The ledger itself is an append-only JSONL file
// and the sole source of truth for violation history. The status overlay is
// a small rewritten JSON map from violation id to OPEN/ACK/RESOLVED,
// mutated only by explicit external status changes and merged into snapshot
// reads. The distributor tails the ledger for live subscribers: each
// subscription holds its own byte-offset watermark, polls the file size at
// a fixed interval, and receives one tagged item per newly appended line,
// starting either at the current end ("tail") or from offset zero
// ("replay").
package ledger
