// Package document builds context groups from files on disk.
//
// Files are normalised to text, chunked into overlapping token windows and
// grouped around randomly chosen anchor chunks. With an embedding service the
// neighbours of an anchor are its nearest chunks by cosine similarity.
// Without one, or when embedding fails, neighbours are ranked by BM25 keyword
// similarity to the anchor text.
//
// Groups never mix documents, and a chunk anchors at most one group per call.
package document
