// Package document implements the in-memory model of a YAML configuration file.
// Values are addressed by dotted paths ("messages.greet"), nested mappings are
// exposed as sections, and comments are kept on the key nodes so they survive a
// load/save cycle. Legacy files that smuggled comments through synthetic
// "<key>_COMMENT_" entries are folded into real comments when parsed.
package document
