package repository

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var fieldPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// SortSpec is a parsed sort argument such as "-due_date".
type SortSpec struct {
	Field string
	Desc  bool
}

// ParseSort parses "field" or "-field"; an empty string sorts newest first.
func ParseSort(sort string) (SortSpec, error) {
	sort = strings.TrimSpace(sort)
	if sort == "" {
		return SortSpec{Field: "created_date", Desc: true}, nil
	}
	spec := SortSpec{Field: sort}
	if strings.HasPrefix(sort, "-") {
		spec = SortSpec{Field: sort[1:], Desc: true}
	}
	if !fieldPattern.MatchString(spec.Field) {
		return SortSpec{}, fmt.Errorf("%w: sort field %q", ErrInvalidQuery, spec.Field)
	}
	return spec, nil
}

// ClampLimit applies the hard cap; non-positive means "no limit" which is the cap.
func ClampLimit(limit int) int {
	if limit <= 0 || limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

func (s SortSpec) orderExpr() string {
	expr := "data->'" + s.Field + "'"
	switch s.Field {
	case "created_date", "updated_date", "created_by":
		expr = s.Field
	case "id":
		expr = "id"
	}
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	return expr + " " + dir + " NULLS LAST"
}

// buildSelect renders the filter query; the sort field is validated so it can be inlined.
func buildSelect(entityType string, query map[string]any, sort string, limit int) (string, []any, error) {
	spec, err := ParseSort(sort)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	args := []any{entityType}
	b.WriteString("SELECT id::text, data, created_date, updated_date, created_by FROM entities WHERE entity_type = $1")

	if len(query) > 0 {
		raw, err := json.Marshal(query)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
		}
		args = append(args, string(raw))
		b.WriteString(" AND data @> $2::jsonb")
	}

	b.WriteString(" ORDER BY ")
	b.WriteString(spec.orderExpr())
	if spec.Field != "created_date" {
		b.WriteString(", created_date DESC")
	}
	b.WriteString(" LIMIT ")
	b.WriteString(strconv.Itoa(ClampLimit(limit)))
	return b.String(), args, nil
}
