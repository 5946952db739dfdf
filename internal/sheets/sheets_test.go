package sheets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestColumnNameRoundTrip(t *testing.T) {
	cases := map[int]string{
		0:   "A",
		1:   "B",
		25:  "Z",
		26:  "AA",
		27:  "AB",
		51:  "AZ",
		52:  "BA",
		701: "ZZ",
		702: "AAA",
	}
	for idx, name := range cases {
		require.Equal(t, name, ColumnName(idx), "index %d", idx)
		require.Equal(t, idx, ColumnIndex(name), "name %s", name)
	}
	require.Equal(t, "", ColumnName(-1))
	require.Equal(t, -1, ColumnIndex("A1"))
	require.Equal(t, -1, ColumnIndex(""))
}

func TestRangeQuotesSheetNames(t *testing.T) {
	require.Equal(t, "'Pushups'!B3", Range("Pushups", Cell{Row: 2, Col: 1}.A1()))
	require.Equal(t, "'Bob''s Sheet'!A1:C1", Range("Bob's Sheet", RowRange(Cell{}, 3)))
	require.Equal(t, "'Pushups'", Range("Pushups", ""))
	require.Equal(t, "AB10", Cell{Row: 9, Col: 27}.A1())
}

func TestMemoryClientWritesAndTrims(t *testing.T) {
	ctx := context.Background()
	client := NewMemoryClient()
	client.SetSheet("Pushups", [][]string{{"Date", "alice"}})

	require.NoError(t, client.WriteRow(ctx, "Pushups", Cell{Row: 2, Col: 0}, []string{"2024-03-01"}))
	require.NoError(t, client.WriteRow(ctx, "Pushups", Cell{Row: 2, Col: 1}, []string{"15"}))

	values, err := client.Values(ctx, "Pushups")
	require.NoError(t, err)
	require.Equal(t, [][]string{{"Date", "alice"}, {}, {"2024-03-01", "15"}}, values)
	raw, err := json.Marshal(values)
	require.NoError(t, err)
	require.JSONEq(t, `[["Date","alice"],[],["2024-03-01","15"]]`, string(raw))

	require.NoError(t, client.Clear(ctx, "Pushups", Cell{Row: 2, Col: 1}))
	values, err = client.Values(ctx, "Pushups")
	require.NoError(t, err)
	require.Equal(t, []string{"2024-03-01"}, values[2])
	require.Equal(t, 3, client.Writes())

	_, err = client.Values(ctx, "Missing")
	require.ErrorIs(t, err, ErrSheetNotFound)
	require.ErrorIs(t, client.WriteRow(ctx, "Missing", Cell{}, []string{"x"}), ErrSheetNotFound)
}

func TestGoogleClientReadsWritesAndClears(t *testing.T) {
	var (
		updateBody  map[string]any
		updateQuery string
		cleared     bool
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasPrefix(r.URL.Path, "/v4/spreadsheets/sheet-id/values/"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "Nope"):
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":{"code":400,"message":"Unable to parse range: 'Nope'","status":"INVALID_ARGUMENT"}}`)
		case r.Method == http.MethodGet:
			_, _ = io.WriteString(w, `{"range":"'Pushups'!A1:C3","majorDimension":"ROWS","values":[["Date","alice","bob"],["2024-03-01","10"]]}`)
		case r.Method == http.MethodPut:
			updateQuery = r.URL.RawQuery
			require.NoError(t, json.NewDecoder(r.Body).Decode(&updateBody))
			_, _ = io.WriteString(w, `{"updatedCells":1}`)
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":clear"):
			cleared = true
			_, _ = io.WriteString(w, `{}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":{"code":404,"message":"not found"}}`)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	client, err := NewGoogleClient(ctx, GoogleConfig{
		SpreadsheetID: "sheet-id",
		Endpoint:      srv.URL + "/",
		HTTPClient:    srv.Client(),
	})
	require.NoError(t, err)

	values, err := client.Values(ctx, "Pushups")
	require.NoError(t, err)
	require.Equal(t, [][]string{{"Date", "alice", "bob"}, {"2024-03-01", "10"}}, values)

	require.NoError(t, client.WriteRow(ctx, "Pushups", Cell{Row: 1, Col: 2}, []string{"25"}))
	require.Contains(t, updateQuery, "valueInputOption=USER_ENTERED")
	require.Equal(t, []any{[]any{"25"}}, updateBody["values"])

	require.NoError(t, client.Clear(ctx, "Pushups", Cell{Row: 1, Col: 1}))
	require.True(t, cleared)

	_, err = client.Values(ctx, "Nope")
	require.ErrorIs(t, err, ErrSheetNotFound)
}

func TestNewGoogleClientRequiresCredentials(t *testing.T) {
	_, err := NewGoogleClient(context.Background(), GoogleConfig{SpreadsheetID: "id"})
	require.Error(t, err)

	_, err = NewGoogleClient(context.Background(), GoogleConfig{APIKey: "key"})
	require.Error(t, err)
}
