package coerce

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	reDisplayDate  = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`)
	reStorageDate  = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	reDocumentDate = regexp.MustCompile(`^(\d{1,2})[/.-](\d{1,2})[/.-](\d{4}|\d{2})$`)
)

// layouts tried, in order, for dash-containing strings that are neither
// display nor plain storage dates (timestamps coming back from the database).
var looseLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05-07",
	"2006-01-02 15:04:05",
	"2006-1-2",
	"2-1-2006",
}

// Brazilian implements Locale for pt-BR documents: period as thousands
// separator, comma as decimal separator, dates as day/month/year.
type Brazilian struct{}

func (Brazilian) ParseQuantity(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, ".", "")
	s = strings.Replace(s, ",", ".", 1)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	n := math.Round(f)
	if n < 0 || n > math.MaxInt32 {
		return 0, false
	}
	return int(n), true
}

func (Brazilian) ToDisplayDate(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if reDisplayDate.MatchString(s) {
		return s
	}
	if m := reStorageDate.FindStringSubmatch(s); m != nil {
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		return fmt.Sprintf("%d/%d/%s", day, month, m[1])
	}
	if strings.Contains(s, "-") && len(s) >= 8 {
		for _, layout := range looseLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return fmt.Sprintf("%d/%d/%d", t.Day(), int(t.Month()), t.Year())
			}
		}
	}
	return raw
}

func (Brazilian) ToStorageDate(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	if m := reStorageDate.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if !validDate(year, month, day) {
			return "", false
		}
		return s, true
	}

	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return "", false
	}
	for _, p := range parts {
		if !isDigits(p) {
			return "", false
		}
	}
	if len(parts[0]) > 2 || len(parts[1]) > 2 || len(parts[2]) != 4 {
		return "", false
	}
	day, _ := strconv.Atoi(parts[0])
	month, _ := strconv.Atoi(parts[1])
	year, _ := strconv.Atoi(parts[2])
	if !validDate(year, month, day) {
		return "", false
	}
	return fmt.Sprintf("%s-%02d-%02d", parts[2], month, day), true
}

func (Brazilian) NormalizeDocumentDate(raw string) (string, bool) {
	m := reDocumentDate.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return "", false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if len(m[3]) == 2 {
		year += 2000
	}
	if !validDate(year, month, day) {
		return "", false
	}
	return fmt.Sprintf("%d/%d/%d", day, month, year), true
}

func (b Brazilian) ParseDate(raw string, loc *time.Location) (time.Time, bool) {
	storage, ok := b.ToStorageDate(raw)
	if !ok {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation("2006-01-02", storage, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func validDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
