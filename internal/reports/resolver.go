package reports

import (
	"fmt"
	"strings"
	"time"
)

// DateSource names where a record's date is read from.
type DateSource string

const (
	// SourceModified uses the UTC calendar date of the Last-Modified timestamp.
	SourceModified DateSource = "modified"
	// SourceName scans the blob name for the first substring matching the layout.
	SourceName DateSource = "name"
	// SourceMetadata parses one metadata value with the layout.
	SourceMetadata DateSource = "metadata"
)

// DateResolver derives the calendar date a record is filtered on.
type DateResolver struct {
	Source      DateSource
	Layout      string
	MetadataKey string
}

// NewDateResolver validates the combination of source, layout and key.
func NewDateResolver(source, layout, metadataKey string) (DateResolver, error) {
	r := DateResolver{Source: DateSource(source), Layout: layout, MetadataKey: metadataKey}
	switch r.Source {
	case SourceModified:
	case SourceName, SourceMetadata:
		if layout == "" {
			return DateResolver{}, fmt.Errorf("date source %s needs a layout", source)
		}
		if r.Source == SourceMetadata && metadataKey == "" {
			return DateResolver{}, fmt.Errorf("date source metadata needs a key")
		}
	default:
		return DateResolver{}, fmt.Errorf("unknown date source %q", source)
	}
	return r, nil
}

// Date returns the record's calendar date in UTC and whether one was found.
func (r DateResolver) Date(rec BlobRecord) (time.Time, bool) {
	switch r.Source {
	case SourceName:
		return r.dateFromName(rec.Name)
	case SourceMetadata:
		value, ok := lookupFold(rec.Metadata, r.MetadataKey)
		if !ok {
			return time.Time{}, false
		}
		d, err := time.Parse(r.Layout, strings.TrimSpace(value))
		if err != nil {
			return time.Time{}, false
		}
		return truncateDay(d), true
	default:
		if rec.LastModified.IsZero() {
			return time.Time{}, false
		}
		return truncateDay(rec.LastModified), true
	}
}

// dateFromName tries every window of the layout's width, left to right.
// Only fixed-width layouts can match.
func (r DateResolver) dateFromName(name string) (time.Time, bool) {
	width := len(r.Layout)
	for i := 0; i+width <= len(name); i++ {
		d, err := time.Parse(r.Layout, name[i:i+width])
		if err == nil {
			return truncateDay(d), true
		}
	}
	return time.Time{}, false
}

// lookupFold finds a metadata key ignoring case; the service lowercases some keys.
func lookupFold(m map[string]string, key string) (string, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}
