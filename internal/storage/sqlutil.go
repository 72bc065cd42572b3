package storage

import "strings"

// maxBatchParams is a conservative ceiling on parameters per statement.
// SQLite allows up to 32766 bound variables; queries that take id lists
// chunk well below that.
const maxBatchParams = 1000

// placeholders returns a comma-joined list of n "?" markers for building
// IN (...) clauses.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(2*n - 1)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('?')
	}
	return b.String()
}

// ChunkIDs splits ids into slices of at most size elements.
// A size <= 0 falls back to maxBatchParams. This is the batching policy
// for every query that binds an id list.
func ChunkIDs(ids []string, size int) [][]string {
	if size <= 0 {
		size = maxBatchParams
	}
	if len(ids) == 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

// stringArgs converts an id slice into driver args
func stringArgs(ids []string) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
