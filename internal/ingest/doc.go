// Package ingest parses the newline-delimited JSON stream that feeds a kernel.
//
// Each non-blank line is one record, either a transition unit:
//
//	{"timestamp":1,"sequence_id":1,"previous_hash":"G","current_hash":"A","payload":[222,173]}
//
// or a dock record carrying an external pattern blob:
//
//	{"pattern_id":"PATTERN_CLUST_SOAK_01","data":[1,2,3]}
//
// Lines are decoded with encoding/json into a strict wire shape. Unknown
// fields, missing required fields, byte values outside 0..255 and trailing
// data are all parse errors. A Reader reports a malformed line and moves on;
// one bad line never ends the stream.
package ingest
