package ml

import (
	"bufio"
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// networkRecord is the persisted form of a network. Field names are part of
// the file format.
type networkRecord struct {
	Layers       []int     `json:"layers"`
	LearningRate float64   `json:"learning_rate"`
	Weights      []*Matrix `json:"weights"`
	Biases       []*Matrix `json:"biases"`
}

// Format selects the encoding used by Save and LoadNetwork.
type Format int

const (
	FormatJSON Format = iota
	FormatGob
)

// FormatForPath picks gob for ".gob" files and JSON for everything else.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".gob") {
		return FormatGob
	}
	return FormatJSON
}

func (nw *Network[A]) record() networkRecord {
	return networkRecord{
		Layers:       nw.layers,
		LearningRate: nw.learningRate,
		Weights:      nw.weights,
		Biases:       nw.biases,
	}
}

// Save writes layers, learning rate, weights and biases to path. The
// activation cache is not persisted. The record is encoded in memory and
// written to a temporary file that replaces path, so a failed save leaves
// any previous file untouched.
func (nw *Network[A]) Save(path string) error {
	var buf bytes.Buffer
	if err := nw.EncodeFormat(&buf, FormatForPath(path)); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("save %s: %w: %w", path, ErrPersistenceIO, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := buf.WriteTo(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("save %s: %w: %w", path, ErrPersistenceIO, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save %s: %w: %w", path, ErrPersistenceIO, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("save %s: %w: %w", path, ErrPersistenceIO, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save %s: %w: %w", path, ErrPersistenceIO, err)
	}
	return nil
}

// Encode writes the network as JSON.
func (nw *Network[A]) Encode(w io.Writer) error {
	return nw.EncodeFormat(w, FormatJSON)
}

// EncodeFormat writes the network in the given format.
func (nw *Network[A]) EncodeFormat(w io.Writer, format Format) error {
	rec := nw.record()
	var err error
	switch format {
	case FormatGob:
		err = gob.NewEncoder(w).Encode(rec)
	default:
		err = json.NewEncoder(w).Encode(rec)
	}
	if err != nil {
		return fmt.Errorf("encode network: %w: %w", ErrEncodeRecord, err)
	}
	return nil
}

// LoadNetwork reads a network written by Save. The activation is not part
// of the record: the caller picks A.
func LoadNetwork[A Activation](path string) (*Network[A], error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w: %w", path, ErrPersistenceIO, err)
	}
	defer file.Close()

	nw, err := DecodeNetworkFormat[A](bufio.NewReader(file), FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return nw, nil
}

// DecodeNetwork reads a JSON network record.
func DecodeNetwork[A Activation](r io.Reader) (*Network[A], error) {
	return DecodeNetworkFormat[A](r, FormatJSON)
}

// DecodeNetworkFormat reads a network record in the given format and
// checks every matrix against the declared layers. The record must be the
// only thing in r.
func DecodeNetworkFormat[A Activation](r io.Reader, format Format) (*Network[A], error) {
	type decoder interface{ Decode(any) error }
	var dec decoder
	switch format {
	case FormatGob:
		dec = gob.NewDecoder(r)
	default:
		dec = json.NewDecoder(r)
	}

	var rec networkRecord
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode network: %w: %w", ErrCorruptRecord, err)
	}
	var extra networkRecord
	if err := dec.Decode(&extra); err != io.EOF {
		return nil, fmt.Errorf("trailing data after network record: %w", ErrCorruptRecord)
	}
	if err := rec.validate(); err != nil {
		return nil, err
	}

	return &Network[A]{
		layers:       rec.Layers,
		weights:      rec.Weights,
		biases:       rec.Biases,
		learningRate: rec.LearningRate,
	}, nil
}

func (rec *networkRecord) validate() error {
	if err := validateTopology(rec.Layers, rec.LearningRate); err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}

	n := len(rec.Layers) - 1
	if len(rec.Weights) != n || len(rec.Biases) != n {
		return fmt.Errorf("architecture mismatch: %d layers need %d weight and bias matrices, record has %d and %d: %w",
			len(rec.Layers), n, len(rec.Weights), len(rec.Biases), ErrCorruptRecord)
	}

	// Helper to check matrix dimensions
	checkDims := func(name string, layerIdx int, m *Matrix, rows, cols int) error {
		if m == nil {
			return fmt.Errorf("layer %d %s is missing: %w", layerIdx, name, ErrCorruptRecord)
		}
		if m.rows != rows || m.cols != cols {
			return fmt.Errorf("layer %d %s shape mismatch: expected [%d, %d], got [%d, %d]: %w",
				layerIdx, name, rows, cols, m.rows, m.cols, ErrCorruptRecord)
		}
		return nil
	}

	for i := 0; i < n; i++ {
		if err := checkDims("weights", i, rec.Weights[i], rec.Layers[i+1], rec.Layers[i]); err != nil {
			return err
		}
		if err := checkDims("biases", i, rec.Biases[i], rec.Layers[i+1], 1); err != nil {
			return err
		}
	}
	return nil
}
