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
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/gorse-io/decomp/backend"
	"github.com/gorse-io/decomp/common/util"
	"github.com/juju/errors"
)

// LoadCSV reads a matrix with one sample per line. Lines starting with '#'
// are skipped.
func LoadCSV[T backend.Scalar](path string, device backend.Device) (*backend.Array[T], *backend.Array[float64], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	defer f.Close()
	values, mask, err := ReadCSV[T](f, device)
	if err != nil {
		return nil, nil, errors.Annotatef(err, "load %s", path)
	}
	return values, mask, nil
}

func ReadCSV[T backend.Scalar](r io.Reader, device backend.Device) (*backend.Array[T], *backend.Array[float64], error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	var t table[T]
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, nil, errors.Trace(err)
		}
		if err = t.width(len(record)); err != nil {
			return nil, nil, errors.Trace(err)
		}
		for j, cell := range record {
			if strings.TrimSpace(cell) == "" {
				var zero T
				t.append(zero, true)
				continue
			}
			v, err := util.ParseScalar[T](cell)
			if err != nil {
				return nil, nil, errors.Annotatef(err, "row %d column %d", t.rows(), j)
			}
			t.append(v, false)
		}
	}
	return t.build(device)
}

// SaveCSV writes the matrix view of a.
func SaveCSV[T backend.Scalar](path string, a *backend.Array[T]) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Trace(err)
	}
	if err = WriteCSV(f, a); err != nil {
		_ = f.Close()
		return errors.Trace(err)
	}
	return errors.Trace(f.Close())
}

func WriteCSV[T backend.Scalar](w io.Writer, a *backend.Array[T]) error {
	writer := csv.NewWriter(w)
	m := a.Matrix()
	record := make([]string, m.Cols)
	for i := 0; i < m.Rows; i++ {
		for j, v := range m.Row(i) {
			record[j] = util.FormatScalar(v)
		}
		if err := writer.Write(record); err != nil {
			return errors.Trace(err)
		}
	}
	writer.Flush()
	return errors.Trace(writer.Error())
}
