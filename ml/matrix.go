package ml

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Matrix represents a dense matrix with a flat data slice for performance.
// Binary operations never mutate their operands; they return a new Matrix.
type Matrix struct {
	rows, cols int
	data       []float64
	dense      *mat.Dense
}

// -------- CONSTRUCTORS ------- //

// Zeros returns a rows x cols matrix filled with 0. Non-positive dimensions panic.
func Zeros(rows, cols int) *Matrix {
	data := make([]float64, rows*cols)
	return &Matrix{
		rows:  rows,
		cols:  cols,
		data:  data,
		dense: mat.NewDense(rows, cols, data),
	}
}

// Random returns a rows x cols matrix with every cell drawn uniformly from [-1, 1).
func Random(rows, cols int, src RandSource) *Matrix {
	if src == nil {
		src = DefaultRandSource
	}
	m := Zeros(rows, cols)
	for i := range m.data {
		m.data[i] = src.Float64()*2 - 1
	}
	return m
}

// FromRow wraps a copy of values as a 1 x len(values) matrix.
func FromRow(values []float64) *Matrix {
	data := make([]float64, len(values))
	copy(data, values)
	return NewMatrixFromSlice(1, len(values), data)
}

// FromRows builds a matrix from a grid; every row must have the same length.
func FromRows(grid [][]float64) (*Matrix, error) {
	if len(grid) == 0 || len(grid[0]) == 0 {
		return nil, fmt.Errorf("empty grid: %w", ErrShapeMismatch)
	}
	rows, cols := len(grid), len(grid[0])
	data := make([]float64, 0, rows*cols)
	for i, row := range grid {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d columns, want %d: %w", i, len(row), cols, ErrShapeMismatch)
		}
		data = append(data, row...)
	}
	return NewMatrixFromSlice(rows, cols, data), nil
}

// NewMatrixFromSlice wraps data (row-major, not copied) as a rows x cols matrix.
func NewMatrixFromSlice(rows, cols int, data []float64) *Matrix {
	if len(data) != rows*cols {
		panic("Slice length mismatch")
	}

	return &Matrix{
		rows:  rows,
		cols:  cols,
		data:  data,
		dense: mat.NewDense(rows, cols, data),
	}
}

func fromDense(d *mat.Dense) *Matrix {
	raw := d.RawMatrix()
	if raw.Stride != raw.Cols {
		d = mat.DenseCopyOf(d)
		raw = d.RawMatrix()
	}
	return &Matrix{rows: raw.Rows, cols: raw.Cols, data: raw.Data, dense: d}
}

// ------- ACCESSORS ------ //

func (m *Matrix) Rows() int { return m.rows }
func (m *Matrix) Cols() int { return m.cols }

// Dims returns (rows, cols).
func (m *Matrix) Dims() (int, int) { return m.rows, m.cols }

// At returns the cell at (i, j).
func (m *Matrix) At(i, j int) float64 { return m.data[i*m.cols+j] }

// RawData returns a copy of the row-major backing storage.
func (m *Matrix) RawData() []float64 {
	out := make([]float64, len(m.data))
	copy(out, m.data)
	return out
}

// Grid returns a copy of the cells as one slice per row.
func (m *Matrix) Grid() [][]float64 {
	grid := make([][]float64, m.rows)
	for i := range grid {
		grid[i] = make([]float64, m.cols)
		copy(grid[i], m.data[i*m.cols:(i+1)*m.cols])
	}
	return grid
}

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	return NewMatrixFromSlice(m.rows, m.cols, m.RawData())
}

func (m *Matrix) String() string {
	return fmt.Sprintf("%v", mat.Formatted(m.dense, mat.Squeeze()))
}

// SameShape reports whether a and b have identical dimensions.
func SameShape(a, b *Matrix) bool {
	return a.rows == b.rows && a.cols == b.cols
}

// Equal reports whether a and b have the same shape and identical cells.
func Equal(a, b *Matrix) bool {
	return SameShape(a, b) && floats.Equal(a.data, b.data)
}

// EqualApprox reports whether a and b have the same shape and cells within tol.
func EqualApprox(a, b *Matrix, tol float64) bool {
	return SameShape(a, b) && floats.EqualApprox(a.data, b.data, tol)
}

// ------- OPERATIONS ------ //

// Add returns a + b elementwise.
func Add(a, b *Matrix) (*Matrix, error) {
	if !SameShape(a, b) {
		return nil, shapeError("add", a, b)
	}
	out := Zeros(a.rows, a.cols)
	out.dense.Add(a.dense, b.dense)
	return out, nil
}

// Sub returns a - b elementwise.
func Sub(a, b *Matrix) (*Matrix, error) {
	if !SameShape(a, b) {
		return nil, shapeError("sub", a, b)
	}
	out := Zeros(a.rows, a.cols)
	out.dense.Sub(a.dense, b.dense)
	return out, nil
}

// Multiply returns the elementwise (Hadamard) product a ⊙ b.
func Multiply(a, b *Matrix) (*Matrix, error) {
	if !SameShape(a, b) {
		return nil, shapeError("multiply", a, b)
	}
	out := Zeros(a.rows, a.cols)
	out.dense.MulElem(a.dense, b.dense)
	return out, nil
}

// MatMul returns the matrix product a · b, shaped (a.rows, b.cols).
func MatMul(a, b *Matrix) (*Matrix, error) {
	if a.cols != b.rows {
		return nil, shapeError("matmul", a, b)
	}
	out := Zeros(a.rows, b.cols)
	out.dense.Mul(a.dense, b.dense)
	return out, nil
}

// Transpose returns a new (cols x rows) matrix.
func Transpose(a *Matrix) *Matrix {
	return fromDense(mat.DenseCopyOf(a.dense.T()))
}

// Map applies fn to every cell, preserving shape.
func Map(a *Matrix, fn func(float64) float64) *Matrix {
	out := Zeros(a.rows, a.cols)
	for i, v := range a.data {
		out.data[i] = fn(v)
	}
	return out
}

// Scale returns s * a.
func Scale(a *Matrix, s float64) *Matrix {
	out := Zeros(a.rows, a.cols)
	out.dense.Scale(s, a.dense)
	return out
}

// addInPlace accumulates b into m. Shapes are checked by the caller.
func (m *Matrix) addInPlace(b *Matrix) {
	floats.Add(m.data, b.data)
}

// ------- ENCODING ------ //

type matrixRecord struct {
	Rows int         `json:"rows"`
	Cols int         `json:"cols"`
	Data [][]float64 `json:"data"`
}

func (m *Matrix) MarshalJSON() ([]byte, error) {
	return json.Marshal(matrixRecord{Rows: m.rows, Cols: m.cols, Data: m.Grid()})
}

func (m *Matrix) UnmarshalJSON(buf []byte) error {
	var rec matrixRecord
	if err := json.Unmarshal(buf, &rec); err != nil {
		return err
	}
	if rec.Rows < 1 || rec.Cols < 1 || len(rec.Data) != rec.Rows {
		return fmt.Errorf("matrix declares [%d, %d] but holds %d rows: %w", rec.Rows, rec.Cols, len(rec.Data), ErrCorruptRecord)
	}
	decoded, err := FromRows(rec.Data)
	if err != nil {
		return fmt.Errorf("%v: %w", err, ErrCorruptRecord)
	}
	if decoded.cols != rec.Cols {
		return fmt.Errorf("matrix declares %d columns but holds %d: %w", rec.Cols, decoded.cols, ErrCorruptRecord)
	}
	*m = *decoded
	return nil
}

func (m *Matrix) GobEncode() ([]byte, error) {
	w := new(bytes.Buffer)
	encoder := gob.NewEncoder(w)
	if err := encoder.Encode(m.rows); err != nil {
		return nil, err
	}
	if err := encoder.Encode(m.cols); err != nil {
		return nil, err
	}
	if err := encoder.Encode(m.data); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func (m *Matrix) GobDecode(buf []byte) error {
	r := bytes.NewBuffer(buf)
	decoder := gob.NewDecoder(r)
	if err := decoder.Decode(&m.rows); err != nil {
		return err
	}
	if err := decoder.Decode(&m.cols); err != nil {
		return err
	}
	if err := decoder.Decode(&m.data); err != nil {
		return err
	}
	if m.rows < 1 || m.cols < 1 || len(m.data) != m.rows*m.cols {
		return fmt.Errorf("matrix declares [%d, %d] but holds %d cells: %w", m.rows, m.cols, len(m.data), ErrCorruptRecord)
	}

	// Re-create the wrapper after loading data
	m.dense = mat.NewDense(m.rows, m.cols, m.data)

	return nil
}
