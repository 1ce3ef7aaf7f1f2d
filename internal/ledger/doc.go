// Package ledger implements the append-only, hash-chained block file that
// records chain-of-custody events.
//
// The file is a plain concatenation of blocks. Each block is a fixed
// 144-byte header followed by a variable-length payload. Every block after
// the first stores the SHA-256 of its predecessor's exact bytes in its
// PrevHash field, so rewriting, reordering or dropping a block breaks the
// chain. The first block is always the genesis block returned by Genesis.
//
// A Store is the only writer of a ledger file. It holds no cached state:
// each Append re-reads the file to find the current tail hash. There is no
// locking between processes; two writers racing produce two blocks with the
// same parent, which the integrity package reports as a duplicate parent.
package ledger
