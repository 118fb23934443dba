// Package file reads and writes golden datasets as JSON, CSV or YAML files.
//
// All three kinds carry the same record: id, input, expected_output, context,
// trace and origin. JSON and YAML also keep source_file. In CSV the context
// and trace columns hold JSON, and an empty expected_output cell stands for a
// missing expected output. Input and expected_output cells containing a
// carriage return are written as JSON strings.
package file
