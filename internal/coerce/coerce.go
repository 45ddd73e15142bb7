// Package coerce turns locale-formatted strings found in OP documents into
// typed values. Every function here is total: malformed input yields a
// false ok flag (or the input unchanged for display dates), never an error.
package coerce

import "time"

// Locale converts quantities and dates written in one locale's conventions.
// Swapping the Locale is the only change needed to support another document
// format; the extractor and the stage machine never parse values themselves.
type Locale interface {
	// ParseQuantity parses a grouped decimal number and rounds it to the
	// nearest integer, ties away from zero.
	ParseQuantity(raw string) (int, bool)
	// ToDisplayDate converts a storage-format date to display format.
	// Display-format input is returned unchanged and unrecognized input is
	// passed through.
	ToDisplayDate(raw string) string
	// ToStorageDate converts a display-format date to storage format.
	ToStorageDate(raw string) (string, bool)
	// NormalizeDocumentDate canonicalizes a date as printed on a document
	// (any of / . - separators, 2 or 4 digit year) into display format.
	NormalizeDocumentDate(raw string) (string, bool)
	// ParseDate resolves a display or storage date to midnight in loc.
	ParseDate(raw string, loc *time.Location) (time.Time, bool)
}

// Default is the locale used by the package-level helpers.
var Default Locale = Brazilian{}

func CoerceQuantity(raw string) (int, bool) { return Default.ParseQuantity(raw) }

func ToDisplayDate(raw string) string { return Default.ToDisplayDate(raw) }

func ToStorageDate(raw string) (string, bool) { return Default.ToStorageDate(raw) }

func NormalizeDocumentDate(raw string) (string, bool) { return Default.NormalizeDocumentDate(raw) }

func ParseDate(raw string, loc *time.Location) (time.Time, bool) {
	return Default.ParseDate(raw, loc)
}

// StorageDatePtr is ToStorageDate for nullable fields.
func StorageDatePtr(l Locale, display *string) *string {
	if display == nil {
		return nil
	}
	s, ok := l.ToStorageDate(*display)
	if !ok {
		return nil
	}
	return &s
}

// DisplayDatePtr is ToDisplayDate for nullable fields; empty results become nil.
func DisplayDatePtr(l Locale, storage *string) *string {
	if storage == nil || *storage == "" {
		return nil
	}
	s := l.ToDisplayDate(*storage)
	return &s
}
