package http

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mind-engage/prestasi/internal/api/httpx"
	"github.com/mind-engage/prestasi/internal/school"
)

const maxImportBytes = 5 << 20

// POST /students/import
// Accepts multipart file= (CSV or JSON), a text/csv body, or a raw JSON array. Rows are upserted by NIS.
func ImportStudentsHandler(store school.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

		var src io.Reader = r.Body
		ct := r.Header.Get("Content-Type")
		if strings.HasPrefix(ct, "multipart/form-data") {
			f, _, err := r.FormFile("file")
			if err != nil {
				httpx.Error(w, http.StatusBadRequest, "file required")
				return
			}
			defer f.Close()
			src = f
		}

		var rows []studentReq
		var err error
		if strings.HasPrefix(ct, "text/csv") {
			rows, err = parseStudentCSV(src)
		} else {
			rows, err = decodeStudents(src)
		}
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		if len(rows) == 0 {
			httpx.JSON(w, http.StatusOK, school.ImportResult{})
			return
		}

		students := make([]school.Student, 0, len(rows))
		for i := range rows {
			if !validRow(w, i+1, &rows[i]) {
				return
			}
			students = append(students, rows[i].student())
		}
		res, err := store.ImportStudents(r.Context(), students)
		if err != nil {
			storeError(w, r, err, "Student not found")
			return
		}
		httpx.JSON(w, http.StatusOK, res)
	}
}

func validRow(w http.ResponseWriter, n int, row *studentReq) bool {
	var missing []string
	if strings.TrimSpace(row.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(row.NIS) == "" {
		missing = append(missing, "nis")
	}
	if strings.TrimSpace(row.Class) == "" {
		missing = append(missing, "class")
	}
	if len(missing) > 0 {
		httpx.Error(w, http.StatusBadRequest, fmt.Sprintf("row %d: missing %s", n, strings.Join(missing, ", ")))
		return false
	}
	return httpx.Validate(w, row)
}

// decodeStudents sniffs the first non-space byte: JSON arrays start with '[', anything else is CSV.
func decodeStudents(r io.Reader) ([]studentReq, error) {
	br := bufio.NewReader(r)
	for {
		b, err := br.Peek(1)
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		switch b[0] {
		case ' ', '\t', '\r', '\n':
			_, _ = br.ReadByte()
			continue
		case '[':
			var rows []studentReq
			if err := json.NewDecoder(br).Decode(&rows); err != nil {
				return nil, errors.New("bad json")
			}
			return rows, nil
		}
		return parseStudentCSV(br)
	}
}

func parseStudentCSV(r io.Reader) ([]studentReq, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	hdr, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("bad csv: %w", err)
	}
	idx := map[string]int{}
	for i, h := range hdr {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, k := range []string{"name", "nis", "class"} {
		if _, ok := idx[k]; !ok {
			return nil, errors.New("missing column: " + k)
		}
	}
	col := func(rec []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}
	var rows []studentReq
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bad csv: %w", err)
		}
		rows = append(rows, studentReq{
			Name:         col(rec, "name"),
			NIS:          col(rec, "nis"),
			Class:        col(rec, "class"),
			GuardianName: col(rec, "guardian_name"),
			Address:      col(rec, "address"),
		})
	}
	return rows, nil
}
