package utils

import (
	"reflect"
	"strings"
)

// GetCols returns the db column names of a struct based on its db tags.
// Used to build SELECT lists that stay in sync with the struct scanned
// into by pgx.RowToStructByName.
func GetCols(s any) []string {
	var cols []string

	structType := reflect.TypeOf(s)

	for _, f := range reflect.VisibleFields(structType) {
		tag := f.Tag.Get("db")

		if tag == "" || tag == "-" {
			continue
		}

		// Strip tag options such as omitempty
		tag = strings.Split(tag, ",")[0]

		cols = append(cols, tag)
	}

	return cols
}
