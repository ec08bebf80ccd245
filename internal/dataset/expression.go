package dataset

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ExpressionMatrix holds genes by samples. Row keys are gene identifiers as text
// (symbols or numeric ids); columns are raw sample labels awaiting resolution.
// Missing or unparsable cells are NaN.
type ExpressionMatrix struct {
	RowKeys []string
	Columns []string
	Data    *mat.Dense
}

// NewExpressionMatrix builds a matrix from row-major values. len(values) must equal len(rowKeys).
func NewExpressionMatrix(rowKeys, columns []string, values [][]float64) (*ExpressionMatrix, error) {
	if len(rowKeys) == 0 || len(columns) == 0 {
		return nil, fmt.Errorf("expression matrix is empty (%d rows, %d columns)", len(rowKeys), len(columns))
	}
	if len(values) != len(rowKeys) {
		return nil, fmt.Errorf("expression matrix: %d row keys but %d value rows", len(rowKeys), len(values))
	}
	data := make([]float64, 0, len(rowKeys)*len(columns))
	for i, row := range values {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("expression matrix: row %q has %d values, want %d", rowKeys[i], len(row), len(columns))
		}
		data = append(data, row...)
	}
	return &ExpressionMatrix{
		RowKeys: append([]string(nil), rowKeys...),
		Columns: append([]string(nil), columns...),
		Data:    mat.NewDense(len(rowKeys), len(columns), data),
	}, nil
}

// ExpressionFromTable reads a gene-by-sample table: the first column holds the
// gene key and the remaining header cells are sample labels.
func ExpressionFromTable(t *Table) (*ExpressionMatrix, error) {
	if len(t.Header) < 2 {
		return nil, fmt.Errorf("%s: expression table needs a gene column and at least one sample column", t.Name)
	}
	cols := t.Header[1:]
	keys := make([]string, 0, len(t.Rows))
	vals := make([][]float64, 0, len(t.Rows))
	for _, row := range t.Rows {
		if len(row) == 0 || IsMissing(row[0]) {
			continue
		}
		rv := make([]float64, len(cols))
		for j := range cols {
			rv[j] = math.NaN()
			if j+1 < len(row) {
				if f, ok := ParseValue(row[j+1]); ok {
					rv[j] = f
				}
			}
		}
		keys = append(keys, row[0])
		vals = append(vals, rv)
	}
	m, err := NewExpressionMatrix(keys, cols, vals)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t.Name, err)
	}
	return m, nil
}

// Dims returns the number of genes and samples.
func (m *ExpressionMatrix) Dims() (genes, samples int) {
	return m.Data.Dims()
}

// Row returns a copy of row i.
func (m *ExpressionMatrix) Row(i int) []float64 {
	return mat.Row(nil, i, m.Data)
}

// Subset returns row i restricted to the given column indices, in that order.
func (m *ExpressionMatrix) Subset(i int, columns []int) []float64 {
	out := make([]float64, len(columns))
	for k, j := range columns {
		out[k] = m.Data.At(i, j)
	}
	return out
}
