package models

import (
	"path/filepath"
	"strings"
)

// Page is one image of an upload batch. Batches are transient and never persisted.
type Page struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Ext returns the lower-cased file extension without the leading dot.
func (p Page) Ext() string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(p.FileName)), ".")
}
