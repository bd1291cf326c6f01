// Package csvdb provides a crash-safe record store over comma-delimited flat files.
//
// # Overview
//
// A [Table] is a text file whose first line is a header of field names and
// whose following lines are records with positional values. Records are
// exposed as ordered [Record] values and matched by caller-supplied [KeyFunc]
// selectors. There is no index: every operation is a single full scan.
//
// # Writes
//
// [Table.InsertOrUpdate], [Table.InsertUnique] and [Table.Delete] read the
// table line by line, write the transformed copy to a temporary file in the
// same directory and rename it over the original. Readers never observe a
// partially written table. When the pass fails the temporary file is removed
// and the original is left as it was.
//
// # Single writer
//
// No file locks are taken. Two processes writing the same table can both read
// the same state and the last rename wins, losing the other update. A table
// must have exactly one active writer; enforcing that is the deployment's job.
// Readers keep scanning the file descriptor they opened and may see a stale
// snapshot, never a corrupt one.
//
// # File Format
//
// Fields are separated by [Delimiter] with no quoting or escaping, so values
// must never contain the delimiter or a line break. Every line after the
// header is a record; an empty line decodes to a record of empty values. The
// first insert into an empty table defines its header from the inserted
// record's field order.
package csvdb
