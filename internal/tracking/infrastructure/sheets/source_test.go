package sheets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/application/commands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = "\ufeffCategory,Title,Status,Discoverer,Deliverer,URL\n" +
	"실험,\"사내용 CS 챗봇 서비스 (RAG)\",Experiment Ready,\"송지호, 최진우\",,https://notion.so/cs\n" +
	"\n" +
	"etc,broken\n" +
	"IS팀,\"Opencost, 자동화\",In Progress,,\"오제욱,김동건\"\n"

func TestParse(t *testing.T) {
	t.Run("maps columns by header name", func(t *testing.T) {
		records, skipped, err := Parse(strings.NewReader(sampleCSV))

		require.NoError(t, err)
		assert.Equal(t, 1, skipped)
		require.Len(t, records, 2)

		first := records[0]
		assert.Equal(t, "sheet", first.Source)
		assert.Equal(t, "실험", first.CategoryLabel)
		assert.Equal(t, "사내용 CS 챗봇 서비스 (RAG)", first.Title)
		assert.Equal(t, "Experiment Ready", first.Status)
		assert.Equal(t, []string{"송지호", "최진우"}, first.DiscoveryCandidates)
		assert.Empty(t, first.DeliveryCandidates)
		assert.Equal(t, "https://notion.so/cs", first.URL)
		assert.Equal(t, "https://notion.so/cs", first.ExternalID)

		second := records[1]
		assert.Equal(t, "Opencost, 자동화", second.Title)
		assert.Equal(t, []string{"오제욱", "김동건"}, second.DeliveryCandidates)
		assert.Empty(t, second.URL)
		assert.Empty(t, second.ExternalID)
	})

	t.Run("header order does not matter", func(t *testing.T) {
		input := "status,TITLE,category,id\nDone,결제,Shape-up,row-7\n"

		records, _, err := Parse(strings.NewReader(input))

		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "Done", records[0].Status)
		assert.Equal(t, "Shape-up", records[0].CategoryLabel)
		assert.Equal(t, "row-7", records[0].ExternalID)
	})

	t.Run("empty input yields no records", func(t *testing.T) {
		records, skipped, err := Parse(strings.NewReader(""))

		require.NoError(t, err)
		assert.Empty(t, records)
		assert.Zero(t, skipped)
	})

	t.Run("header without a required column fails", func(t *testing.T) {
		_, _, err := Parse(strings.NewReader("category,title\nx,y\n"))

		assert.ErrorIs(t, err, ErrMissingColumn)
	})
}

func TestSource_Fetch(t *testing.T) {
	ctx := context.Background()

	t.Run("downloads and parses the export", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			w.Header().Set("Content-Type", "text/csv")
			_, _ = w.Write([]byte(sampleCSV))
		}))
		defer server.Close()

		records, err := NewSource(server.URL, nil).Fetch(ctx)

		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("non-2xx response is a transport error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gone", http.StatusGone)
		}))
		defer server.Close()

		_, err := NewSource(server.URL, nil).Fetch(ctx)

		var transportErr *commands.TransportError
		require.ErrorAs(t, err, &transportErr)
		assert.Equal(t, "sheet", transportErr.Source)
		assert.Contains(t, err.Error(), "status=410")
	})

	t.Run("missing url is a transport error", func(t *testing.T) {
		_, err := NewSource("", nil).Fetch(ctx)

		var transportErr *commands.TransportError
		assert.ErrorAs(t, err, &transportErr)
	})
}
