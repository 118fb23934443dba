// Package normalisers provides implementations of the Normaliser interface
// for various document formats. Each normaliser knows how to extract text
// content from a specific MIME type.
//
// Registry selects a normaliser by MIME type and priority. NewDefaultRegistry
// wires the built-in plain text, Markdown, HTML and DOCX normalisers.
package normalisers
