// Package utils provides small helpers shared by the transport and service
// layers that carry no bridge semantics of their own.
package utils

import "strconv"

// AtoiDefault parses s as an int and falls back to def when s is empty or
// not a valid integer. No trimming is done.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ClampPage bounds a 1-based page number and a page size. A page size below
// 1 becomes def; one above max becomes max.
func ClampPage(page, pageSize, def, max int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = def
	}
	if pageSize > max {
		pageSize = max
	}
	return page, pageSize
}

// Offset is the number of rows before the first row of page.
func Offset(page, pageSize int) int {
	return (page - 1) * pageSize
}
