// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dataset

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorse-io/decomp/backend"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func TestReadCSV(t *testing.T) {
	values, mask, err := ReadCSV[float64](strings.NewReader("# observations\n1, 2, 3\n4,,6\n"), backend.CPU)
	assert.NoError(t, err)
	assert.Equal(t, []int{2, 3}, values.Shape)
	assert.Equal(t, []float64{1, 2, 3, 4, 0, 6}, values.Data)
	assert.Equal(t, []float64{1, 1, 1, 1, 0, 1}, mask.Data)

	values, mask, err = ReadCSV[float64](strings.NewReader("1,2\n3,4\n"), backend.Parallel)
	assert.NoError(t, err)
	assert.Nil(t, mask)
	assert.Equal(t, backend.Parallel, values.Device)

	complexValues, _, err := ReadCSV[complex128](strings.NewReader("(1+2j),3\n-1i,0.5-0.5i\n"), backend.CPU)
	assert.NoError(t, err)
	assert.Equal(t, []complex128{complex(1, 2), 3, complex(0, -1), complex(0.5, -0.5)}, complexValues.Data)

	_, _, err = ReadCSV[float64](strings.NewReader("1,2\n3\n"), backend.CPU)
	assert.True(t, errors.Is(err, backend.ErrShapeMismatch))
	_, _, err = ReadCSV[float64](strings.NewReader("1,x\n"), backend.CPU)
	assert.Error(t, err)
}

func TestCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dictionary.csv")
	a, err := backend.FromRows(backend.CPU, [][]complex128{{complex(0.1, 0.2), 1}, {-3, complex(0, 1e-9)}})
	assert.NoError(t, err)
	assert.NoError(t, SaveCSV(path, a))
	b, mask, err := LoadCSV[complex128](path, backend.CPU)
	assert.NoError(t, err)
	assert.Nil(t, mask)
	assert.Equal(t, a.Shape, b.Shape)
	assert.Equal(t, a.Data, b.Data)

	_, _, err = LoadCSV[float64](filepath.Join(t.TempDir(), "missing.csv"), backend.CPU)
	assert.Error(t, err)

	var buf bytes.Buffer
	realValues, _ := backend.FromRows(backend.CPU, [][]float64{{1, 0.5}})
	assert.NoError(t, WriteCSV(&buf, realValues))
	assert.Equal(t, "1,0.5\n", buf.String())
}

func TestSQLite(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "decomp.db"))
	assert.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE observations (id INTEGER, a REAL, b REAL, note TEXT)`)
	assert.NoError(t, err)
	_, err = db.Exec(`INSERT INTO observations VALUES (1, 1.5, 2, 'x'), (2, NULL, 4, 'y'), (3, 5, '6.5', 'z')`)
	assert.NoError(t, err)
	values, mask, err := LoadSQLite[float64](ctx, db, "observations", []string{"a", "b"}, backend.CPU)
	assert.NoError(t, err)
	assert.Equal(t, []int{3, 2}, values.Shape)
	assert.Equal(t, []float64{1.5, 2, 0, 4, 5, 6.5}, values.Data)
	assert.Equal(t, []float64{1, 1, 0, 1, 1, 1}, mask.Data)

	_, _, err = LoadSQLite[float64](ctx, db, "observations", nil, backend.CPU)
	assert.Error(t, err)
	_, _, err = LoadSQLite[float64](ctx, db, "unknown", nil, backend.CPU)
	assert.Error(t, err)

	codes, err := backend.FromRows(backend.CPU, [][]complex128{{1, complex(0, 2)}, {complex(-1, 1), 0}})
	assert.NoError(t, err)
	assert.NoError(t, SaveSQLite(ctx, db, "codes", codes))
	loaded, mask, err := LoadSQLite[complex128](ctx, db, "codes", nil, backend.CPU)
	assert.NoError(t, err)
	assert.Nil(t, mask)
	assert.Equal(t, codes.Data, loaded.Data)

	dictionary, err := backend.FromRows(backend.CPU, [][]float64{{0.5, -0.25}})
	assert.NoError(t, err)
	assert.NoError(t, SaveSQLite(ctx, db, "codes", dictionary))
	reloaded, _, err := LoadSQLite[float64](ctx, db, "codes", []string{"c0", "c1"}, backend.CPU)
	assert.NoError(t, err)
	assert.Equal(t, dictionary.Data, reloaded.Data)
}

func TestMergeMasks(t *testing.T) {
	a, _ := backend.FromRows(backend.CPU, [][]float64{{1, 0}, {2, 1}})
	b, _ := backend.FromRows(backend.CPU, [][]float64{{1, 1}, {0, 0.5}})
	merged, err := MergeMasks(a, b)
	assert.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 0, 0.5}, merged.Data)
	assert.Equal(t, []float64{1, 0, 2, 1}, a.Data)

	same, err := MergeMasks(nil, b)
	assert.NoError(t, err)
	assert.Same(t, b, same)
	same, err = MergeMasks(a, nil)
	assert.NoError(t, err)
	assert.Same(t, a, same)

	c, _ := backend.FromRows(backend.CPU, [][]float64{{1, 1, 1}})
	_, err = MergeMasks(a, c)
	assert.True(t, errors.Is(err, backend.ErrShapeMismatch))
}
