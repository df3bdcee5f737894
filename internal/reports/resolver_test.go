package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDateResolver(t *testing.T) {
	_, err := NewDateResolver("modified", "", "")
	require.NoError(t, err)
	_, err = NewDateResolver("name", "20060102", "")
	require.NoError(t, err)

	_, err = NewDateResolver("name", "", "")
	assert.Error(t, err)
	_, err = NewDateResolver("metadata", "2006-01-02", "")
	assert.Error(t, err)
	_, err = NewDateResolver("etag", "2006-01-02", "")
	assert.Error(t, err)
}

func TestDateResolver_Name(t *testing.T) {
	r := DateResolver{Source: SourceName, Layout: "2006-01-02"}

	d, ok := r.Date(BlobRecord{Name: "exports/sales_2026-02-05_v2.csv"})
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, time.February, 5, 0, 0, 0, 0, time.UTC), d)

	_, ok = r.Date(BlobRecord{Name: "readme.txt"})
	assert.False(t, ok)

	// Invalid calendar dates are skipped.
	_, ok = r.Date(BlobRecord{Name: "bad-2026-13-40.csv"})
	assert.False(t, ok)

	compact := DateResolver{Source: SourceName, Layout: "20060102"}
	d, ok = compact.Date(BlobRecord{Name: "report20260210.csv"})
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC), d)
}

func TestDateResolver_Metadata(t *testing.T) {
	r := DateResolver{Source: SourceMetadata, Layout: "2006-01-02", MetadataKey: "report_date"}

	d, ok := r.Date(BlobRecord{Name: "x", Metadata: map[string]string{"Report_Date": " 2026-02-15 "}})
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC), d)

	_, ok = r.Date(BlobRecord{Name: "x"})
	assert.False(t, ok)
	_, ok = r.Date(BlobRecord{Name: "x", Metadata: map[string]string{"report_date": "soon"}})
	assert.False(t, ok)
}

func TestDateResolver_Modified(t *testing.T) {
	r := DateResolver{Source: SourceModified}
	d, ok := r.Date(BlobRecord{Name: "x", LastModified: time.Date(2026, time.February, 1, 23, 0, 0, 0, time.UTC)})
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC), d)

	_, ok = r.Date(BlobRecord{Name: "x"})
	assert.False(t, ok)
}

func TestSelect_ByName(t *testing.T) {
	in := []BlobRecord{
		{Name: "r-2026-02-01.csv", LastModified: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)},
		{Name: "r-2026-02-05.csv", LastModified: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)},
		{Name: "notes.txt"},
	}
	f, err := ExactFilter("2026-02-05")
	require.NoError(t, err)

	got := Select(in, f, DateResolver{Source: SourceName, Layout: "2006-01-02"})
	assert.Equal(t, []string{"r-2026-02-05.csv"}, names(got))
}
