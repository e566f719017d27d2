package roster

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certforge/internal/errcode"
	"certforge/internal/testutil"
)

func TestOrdinal(t *testing.T) {
	cases := map[int]string{
		0:   "0th",
		1:   "1st",
		2:   "2nd",
		3:   "3rd",
		4:   "4th",
		9:   "9th",
		10:  "10th",
		11:  "11th",
		12:  "12th",
		13:  "13th",
		21:  "21st",
		22:  "22nd",
		23:  "23rd",
		101: "101st",
		111: "111th",
		112: "112th",
		113: "113th",
	}
	for n, want := range cases {
		assert.Equal(t, want, Ordinal(n), "Ordinal(%d)", n)
	}
}

func TestOrdinalString(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"007", "7th"},
		{"0", "0th"},
		{"000", "0th"},
		{"12", "12th"},
		{"123456789012345678901", "123456789012345678901st"},
		{"99999999999999999999912", "99999999999999999999912th"},
		{"00000000000000000000000000003", "3rd"},
		{"Champion", "Champion"},
		{"-3", "-3"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, OrdinalString(tc.in), "OrdinalString(%q)", tc.in)
	}
}

func TestNormalizePositionLongNumber(t *testing.T) {
	assert.Equal(t, "123456789012345678901st", normalizePosition(" 123456789012345678901 "))
	assert.Equal(t, "10000000000000000000000th", normalizePosition("10000000000000000000000"))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteWorkbook(t, dir, "roster.xlsx",
		testutil.Header,
		[]string{"Alice Smith", "Physics", "1", "Relay"},
		[]string{"   ", "Chemistry", "2", "Sprint"},
		[]string{"Bob", "", "Champion", ""},
		[]string{"", "Biology", "3", "Quiz"},
		[]string{"Carol", "Maths", " 3 ", "Chess"},
		[]string{"Dan", "Art", "", "Painting"},
	)

	records, err := Load(path)
	require.NoError(t, err)

	want := []Record{
		{Name: "Alice Smith", Course: "Physics", Position: "1st", Event: "Relay"},
		{Name: "Bob", Course: Unknown, Position: "Champion", Event: Unknown},
		{Name: "Carol", Course: "Maths", Position: "3rd", Event: "Chess"},
		{Name: "Dan", Course: "Art", Position: Unknown, Event: "Painting"},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildRecordsKeepsNameVerbatim(t *testing.T) {
	tbl := table{
		header: testutil.Header,
		rows: []map[string]string{
			{ColumnName: " Eve ", ColumnCourse: "History", ColumnPosition: "12", ColumnEvent: "Debate"},
			{ColumnName: "\t", ColumnCourse: "History"},
			{ColumnCourse: "History"},
		},
	}

	records, err := buildRecords(tbl)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, " Eve ", records[0].Name)
	assert.Equal(t, "12th", records[0].Position)
}

func TestLoadHeaderOrderDoesNotMatter(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteWorkbook(t, dir, "roster.xlsx",
		[]string{"Event", "Name", "Extra", "Position", "Course"},
		[]string{"Relay", "Frank", "ignored", "21", "Physics"},
	)

	records, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []Record{{Name: "Frank", Course: "Physics", Position: "21st", Event: "Relay"}}, records)
}

func TestLoadMissingColumns(t *testing.T) {
	dir := t.TempDir()

	t.Run("one column", func(t *testing.T) {
		path := testutil.WriteWorkbook(t, dir, "no-event.xlsx",
			[]string{"Name", "Course", "Position"},
			[]string{"Alice", "Physics", "1"},
		)
		_, err := Load(path)
		var dataErr *errcode.DataFormatError
		require.True(t, errors.As(err, &dataErr))
		assert.Equal(t, []string{"Event"}, dataErr.Missing)
		assert.Equal(t, "missing required columns: [Event]", err.Error())
	})

	t.Run("two columns", func(t *testing.T) {
		path := testutil.WriteWorkbook(t, dir, "two-missing.xlsx",
			[]string{"Name", "Position"},
			[]string{"Alice", "1"},
		)
		_, err := Load(path)
		var dataErr *errcode.DataFormatError
		require.True(t, errors.As(err, &dataErr))
		assert.Equal(t, []string{"Course", "Event"}, dataErr.Missing)
	})

	t.Run("empty sheet", func(t *testing.T) {
		path := testutil.WriteWorkbook(t, dir, "empty.xlsx")
		_, err := Load(path)
		var dataErr *errcode.DataFormatError
		require.True(t, errors.As(err, &dataErr))
		assert.Equal(t, RequiredColumns, dataErr.Missing)
	})
}

func TestLoadUnreadableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("not a workbook"), 0o644))

	_, err := Load(path)
	var dataErr *errcode.DataFormatError
	require.True(t, errors.As(err, &dataErr))
	assert.Contains(t, err.Error(), "Error reading Excel file")
	assert.Equal(t, errcode.DataFormat, errcode.Code(err))
}
