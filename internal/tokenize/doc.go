// Package tokenize implements the inverted index's tokenization policy:
// Unicode simple word break, case-fold, no stemming, diacritics preserved.
//
// The corpus is predominantly Chinese and English prose, so CJK characters
// are split one rune per token (no word-break dictionary exists for them in
// the standard library) while Latin/digit runs are kept intact:
//
//	tokenize.Words("EIP-1559升级") // ["eip", "1559", "升", "级"]
//
// Storage (internal/storage) relies on SQLite's own FTS5 tokenizer for the
// index itself; this package normalizes query text the same way before it
// is handed to FTS5, and is reused by the clusterer's label extraction.
package tokenize
