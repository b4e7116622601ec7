package metadata

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/imgshard/pkg/persist"
)

// Document basenames at the output root.
const (
	basenameDatasetInfo = "dataset_info"
	basenameState       = "state"

	fileDatasetInfo = basenameDatasetInfo + ".json"
	fileState       = basenameState + ".json"
)

var (
	infoPersister  = persist.NewPersister[DatasetInfo](basenameDatasetInfo, persist.NewJSONCodec())
	statePersister = persist.NewPersister[State](basenameState, persist.NewJSONCodec())
)

// Write validates both documents and writes them to dir. Nothing is written
// unless both pass their schemas and agree with each other.
func Write(dir string, info *DatasetInfo, state *State) error {
	err := errors.Join(ValidateDatasetInfo(info), ValidateState(state))
	if err != nil {
		return err
	}

	err = Check(info, state)
	if err != nil {
		return err
	}

	err = infoPersister.Save(dir, info)
	if err != nil {
		return fmt.Errorf("write %s: %w", fileDatasetInfo, err)
	}

	err = statePersister.Save(dir, state)
	if err != nil {
		return fmt.Errorf("write %s: %w", fileState, err)
	}

	return nil
}

// Load reads both documents from dir without validating them.
func Load(dir string) (*DatasetInfo, *State, error) {
	info, err := infoPersister.Load(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", fileDatasetInfo, err)
	}

	state, err := statePersister.Load(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", fileState, err)
	}

	return info, state, nil
}

// Verify loads both documents from dir and runs the schema and consistency checks.
func Verify(dir string) (*DatasetInfo, *State, error) {
	info, state, err := Load(dir)
	if err != nil {
		return nil, nil, err
	}

	err = errors.Join(ValidateDatasetInfo(info), ValidateState(state))
	if err != nil {
		return info, state, err
	}

	err = Check(info, state)
	if err != nil {
		return info, state, err
	}

	return info, state, nil
}
