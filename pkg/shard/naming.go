// Package shard turns chunks of labeled samples into two-column record batches
// and writes each batch to its own write-once columnar shard file.
package shard

import (
	"fmt"
	"strings"
)

// shardPrefix and shardPattern define the on-disk shard name.
const (
	shardPrefix  = "data-"
	shardPattern = shardPrefix + "%05d-of-%05d"
	scanPattern  = shardPrefix + "%d-of-%d"
)

// ShardName returns the file name of chunk index out of total, e.g.
// "data-00002-of-00004.arrow". The index is zero-based.
func ShardName(index, total int, ext string) string {
	return fmt.Sprintf(shardPattern, index, total) + "." + strings.TrimPrefix(ext, ".")
}

// ParseShardName extracts the chunk index and total from a shard file name.
func ParseShardName(name string) (index, total int, ok bool) {
	if !strings.HasPrefix(name, shardPrefix) {
		return 0, 0, false
	}

	stem, _, _ := strings.Cut(name, ".")

	n, err := fmt.Sscanf(stem, scanPattern, &index, &total)
	if err != nil || n != 2 || index < 0 || total <= 0 || index >= total {
		return 0, 0, false
	}

	return index, total, true
}
