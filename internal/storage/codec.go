package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"studydex/internal/model"
	"studydex/internal/snapshot"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// stateRecord wraps the backup document with the versions it was written at.
type stateRecord struct {
	model.VersionedRecord
	State json.RawMessage `json:"state"`
}

func EncodeState(s model.State) ([]byte, error) {
	doc, err := snapshot.Export(s)
	if err != nil {
		return nil, err
	}
	return json.Marshal(stateRecord{
		VersionedRecord: currentVersion(),
		State:           doc,
	})
}

func DecodeState(data []byte) (model.State, error) {
	var record stateRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.State{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.State{}, err
	}
	state, err := snapshot.Import(record.State)
	if err != nil {
		return model.State{}, fmt.Errorf("decode state: %w", err)
	}
	return state, nil
}

func currentVersion() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return fmt.Errorf("%w: schema %d codec %d", ErrVersionMismatch, v.SchemaVersion, v.CodecVersion)
	}
	return nil
}
