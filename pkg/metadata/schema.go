package metadata

import (
	"embed"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/imgshard/pkg/shard"
)

// Schema file names inside the embedded schemas directory.
const (
	SchemaDatasetInfo = "dataset_info.schema.json"
	SchemaState       = "state.schema.json"
)

// ErrInvalidMetadata is the sentinel for a document that fails its schema or
// disagrees with its sibling document.
var ErrInvalidMetadata = errors.New("invalid metadata")

//go:embed schemas/*.json
var schemaFS embed.FS

// ValidationError lists every problem found in one metadata document.
type ValidationError struct {
	Document string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Document, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidMetadata }

func loadSchema(name string) (gojsonschema.JSONLoader, error) {
	data, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		return nil, fmt.Errorf("read embedded schema %s: %w", name, err)
	}

	return gojsonschema.NewBytesLoader(data), nil
}

func validate(document, schemaName string, doc any) error {
	schemaLoader, err := loadSchema(schemaName)
	if err != nil {
		return err
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validate %s: %w", document, err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, resultErr := range result.Errors() {
		problems = append(problems, resultErr.String())
	}

	return &ValidationError{Document: document, Problems: problems}
}

// ValidateDatasetInfo checks info against the dataset_info schema.
func ValidateDatasetInfo(info *DatasetInfo) error {
	return validate(fileDatasetInfo, SchemaDatasetInfo, info)
}

// ValidateState checks state against the state schema.
func ValidateState(state *State) error {
	return validate(fileState, SchemaState, state)
}

// Check verifies that info and state describe the same shards: per-split row
// and shard counts, the split file lists, the format and the sample total.
// Each split's file names must carry its shard count as -of-<total> and
// indices 0..total-1 exactly once.
func Check(info *DatasetInfo, state *State) error {
	var problems []string

	rows := make(map[string]int)
	shards := make(map[string]int)
	dataNames := make(map[string][]string)

	for _, df := range state.DataFiles {
		rows[df.Split] += df.NumRows
		shards[df.Split]++
		dataNames[df.Split] = append(dataNames[df.Split], path.Base(df.Filename))
	}

	total := 0

	for name, split := range info.Splits {
		total += split.NumExamples

		if split.Name != name {
			problems = append(problems, fmt.Sprintf("split %q is named %q", name, split.Name))
		}

		if rows[name] != split.NumExamples {
			problems = append(problems, fmt.Sprintf("split %q: %d examples but data files hold %d rows",
				name, split.NumExamples, rows[name]))
		}

		if shards[name] != split.NumShards {
			problems = append(problems, fmt.Sprintf("split %q: %d shards but %d data files",
				name, split.NumShards, shards[name]))
		}

		if len(state.SplitFiles[name]) != split.NumShards {
			problems = append(problems, fmt.Sprintf("split %q: %d shards but %d split files",
				name, split.NumShards, len(state.SplitFiles[name])))
		}

		problems = append(problems, shardNameProblems(name, "_split_files", state.SplitFiles[name], split.NumShards)...)
		problems = append(problems, shardNameProblems(name, "_data_files", dataNames[name], split.NumShards)...)
	}

	for name := range rows {
		_, ok := info.Splits[name]
		if !ok {
			problems = append(problems, fmt.Sprintf("data files reference unknown split %q", name))
		}
	}

	if total != info.NumSamples {
		problems = append(problems, fmt.Sprintf("num_samples %d but splits hold %d", info.NumSamples, total))
	}

	if info.Format != state.Type {
		problems = append(problems, fmt.Sprintf("format %q but _type %q", info.Format, state.Type))
	}

	if len(problems) > 0 {
		return &ValidationError{Document: "metadata", Problems: problems}
	}

	return nil
}

// shardNameProblems reports names whose total differs from want, indices seen
// twice, and indices in 0..want-1 that no name covers.
func shardNameProblems(split, list string, names []string, want int) []string {
	var problems []string

	seen := make(map[int]bool, len(names))

	for _, name := range names {
		index, total, ok := shard.ParseShardName(name)
		if !ok {
			problems = append(problems, fmt.Sprintf("split %q: %s entry %q is not a shard name", split, list, name))

			continue
		}

		if total != want {
			problems = append(problems, fmt.Sprintf("split %q: %s entry %q claims %d shards, split has %d",
				split, list, name, total, want))
		}

		if seen[index] {
			problems = append(problems, fmt.Sprintf("split %q: %s lists shard %d twice", split, list, index))
		}

		seen[index] = true
	}

	for index := range want {
		if !seen[index] {
			problems = append(problems, fmt.Sprintf("split %q: %s is missing shard %d", split, list, index))
		}
	}

	return problems
}
