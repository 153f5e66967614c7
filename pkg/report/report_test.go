package report

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/gtminspect/pkg/errors"
	"github.com/ajitpratap0/gtminspect/pkg/flatten"
	"github.com/ajitpratap0/gtminspect/pkg/gtm"
)

const fixture = `{"containerVersion": {
  "tag": [
    {"name": "Purchase", "type": "gaid", "firingTriggerId": ["t1", "t2"],
     "parameter": [{"key": "eventName", "value": "purchase"}, {"key": "conversionLabel", "value": "a,b \"c\""}]},
    {"name": "Paused HTML", "type": "html", "paused": true, "firingTriggerId": ["t99"]},
    {"name": "Bare", "type": "img"}
  ],
  "trigger": [
    {"triggerId": "t1", "name": "PageView", "type": "pageview",
     "filter": [{"type": "EQUALS", "parameter": [{"key": "arg0", "value": "{{Page}}"}, {"key": "arg1", "value": "/home"}]}]},
    {"triggerId": "t2", "name": "Click", "type": "click",
     "customEventFilter": [{"type": "CONTAINS", "parameter": [{"key": "arg0", "value": "{{Click Text}}"}]}]}
  ]
}}`

func fixtureRows(t *testing.T) []flatten.FlatRow {
	t.Helper()
	ws, err := gtm.Parse([]byte(fixture), gtm.ParseOptions{})
	require.NoError(t, err)
	return flatten.Flatten(ws)
}

func TestNewWriter(t *testing.T) {
	for _, f := range []Format{FormatCSV, FormatJSON, FormatJSONL, FormatAvro, "CSV"} {
		w, err := NewWriter(f)
		require.NoError(t, err, "format %s", f)
		assert.NotEmpty(t, w.ContentType())
		assert.True(t, strings.HasPrefix(w.Extension(), "."))
	}

	_, err := NewWriter("xlsx")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeCapability))
	assert.False(t, IsSupported("xlsx"))

	assert.Equal(t, []Format{FormatAvro, FormatCSV, FormatJSON, FormatJSONL}, Formats())
}

func TestRegisterDuplicate(t *testing.T) {
	err := Register(FormatCSV, func() Writer { return &CSVWriter{} })
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestCSVRoundTrip(t *testing.T) {
	rows := fixtureRows(t)
	require.Len(t, rows, 3)

	var buf bytes.Buffer
	require.NoError(t, (&CSVWriter{}).Write(&buf, rows))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out,
		"Tag Name,Type,Tag Paused,Triggers,Trigger.Name,Trigger.Type,Parameters,Parameters.conversionLabel,Parameters.eventName\n"))
	assert.Contains(t, out, "\"Name: PageView | Type: pageview | Filter: ['{{Page}} equals '/home'']\n"+
		"Name: Click | Type: click | Filter: ['CONTAINS (invalid or missing args)']\"")

	back, err := ReadCSV(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, rows, back)
}

func TestCSVEmptyReportHasHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&CSVWriter{UseCRLF: true}).Write(&buf, nil))
	assert.Equal(t, strings.Join(flatten.Columns, ",")+"\r\n", buf.String())
}

func TestReadCSVRejectsForeignHeader(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a,b,c,d,e,f,g,h,i\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected column 0")
}

func TestJSONWriter(t *testing.T) {
	rows := fixtureRows(t)

	var buf bytes.Buffer
	require.NoError(t, (&JSONWriter{}).Write(&buf, rows))

	var decoded []map[string]interface{}
	require.NoError(t, gojson.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 3)
	assert.Equal(t, "Purchase", decoded[0]["Tag Name"])
	assert.Equal(t, "PageView", decoded[0]["Trigger.Name"])
	assert.Equal(t, true, decoded[1]["Tag Paused"])
	assert.Equal(t, "", decoded[1]["Triggers"])

	buf.Reset()
	require.NoError(t, (&JSONWriter{}).Write(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestJSONLinesWriter(t *testing.T) {
	rows := fixtureRows(t)

	var buf bytes.Buffer
	require.NoError(t, (&JSONLinesWriter{}).Write(&buf, rows))

	scanner := bufio.NewScanner(&buf)
	var got []flatten.FlatRow
	for scanner.Scan() {
		var row flatten.FlatRow
		require.NoError(t, gojson.Unmarshal(scanner.Bytes(), &row))
		got = append(got, row)
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, rows, got)
}

func TestAvroRoundTrip(t *testing.T) {
	rows := fixtureRows(t)

	for _, compression := range []string{"", "deflate", "snappy"} {
		t.Run("compression="+compression, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, (&AvroWriter{Compression: compression}).Write(&buf, rows))

			back, err := ReadAvro(&buf)
			require.NoError(t, err)
			assert.Equal(t, rows, back)
		})
	}
}

func TestAvroEmptyReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&AvroWriter{}).Write(&buf, nil))

	back, err := ReadAvro(&buf)
	require.NoError(t, err)
	assert.Empty(t, back)
}
