// Package metadata describes and persists the dataset_info.json and state.json
// documents written at the root of a converted dataset.
package metadata

import (
	"time"

	"github.com/google/uuid"
)

// DatasetTypeImageFolder is the dataset_type of every dataset this tool writes.
const DatasetTypeImageFolder = "imagefolder"

// Feature dtypes.
const (
	DTypeBinary = "binary"
	DTypeString = "string"
)

// Feature describes one column of the shards.
type Feature struct {
	DType string   `json:"dtype"           yaml:"dtype"`
	Names []string `json:"names,omitempty" yaml:"names,omitempty"`
}

// SplitInfo summarizes one split in the descriptor.
type SplitInfo struct {
	Name        string `json:"name"         yaml:"name"`
	NumExamples int    `json:"num_examples" yaml:"num_examples"`
	NumShards   int    `json:"num_shards"   yaml:"num_shards"`
	NumBytes    int64  `json:"num_bytes"    yaml:"num_bytes"`
}

// DatasetInfo is the dataset_info.json document.
type DatasetInfo struct {
	DatasetName string               `json:"dataset_name" yaml:"dataset_name"`
	DatasetType string               `json:"dataset_type" yaml:"dataset_type"`
	Format      string               `json:"format"       yaml:"format"`
	Features    map[string]Feature   `json:"features"     yaml:"features"`
	Splits      map[string]SplitInfo `json:"splits"       yaml:"splits"`
	NumSamples  int                  `json:"num_samples"  yaml:"num_samples"`
}

// DataFile is one shard entry in state.json. Filename is relative to the
// output root and always uses forward slashes.
type DataFile struct {
	Filename string `json:"filename" yaml:"filename"`
	Split    string `json:"split"    yaml:"split"`
	NumRows  int    `json:"num_rows" yaml:"num_rows"`
}

// State is the state.json document.
type State struct {
	DataFiles   []DataFile          `json:"_data_files"  yaml:"_data_files"`
	SplitFiles  map[string][]string `json:"_split_files" yaml:"_split_files"`
	Type        string              `json:"_type"        yaml:"_type"`
	Fingerprint string              `json:"_fingerprint" yaml:"_fingerprint"`
	ChunkSize   int                 `json:"chunk_size"   yaml:"chunk_size"`
	ThreadCount int                 `json:"thread_count" yaml:"thread_count"`
	Seed        uint64              `json:"seed"         yaml:"seed"`
	CreatedAt   time.Time           `json:"created_at"   yaml:"created_at"`
}

// ImageFeatures returns the feature map for an (image, label) dataset with the
// given label vocabulary.
func ImageFeatures(labels []string) map[string]Feature {
	names := labels
	if names == nil {
		names = []string{}
	}

	return map[string]Feature{
		"image": {DType: DTypeBinary},
		"label": {DType: DTypeString, Names: names},
	}
}

// NewFingerprint returns a fresh identifier for one conversion run.
func NewFingerprint() string {
	return uuid.NewString()
}
