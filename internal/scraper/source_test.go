package scraper

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultsPage = `
<html><body>
<div class="lp-student-progress-table" data-course-id="101">
  <table class="lp-progress-table">
    <tr>
      <th>Name</th><th>Email</th><th>Start Date</th><th>End Date</th>
      <th>Progress (%)</th><th>Expected result</th>
    </tr>
    <tr>
      <td>Alice</td><td>alice@x.com</td><td>2024-01-10</td><td></td>
      <td>45%</td><td>2.5</td>
    </tr>
    <tr>
      <td>Bob</td><td>bob@x.com</td><td>N/A</td><td></td>
      <td>0%</td><td>0</td>
    </tr>
    <tr>
      <td>Carol</td><td>carol@x.com</td><td>2024-01-10</td><td>2024-03-01</td>
      <td>100%</td><td>4</td>
    </tr>
    <tr>
      <td>Dave</td><td>dave@x.com</td><td>2024-01-10</td><td></td>
      <td>92%</td><td>3</td>
    </tr>
  </table>
</div>
<div class="lp-student-progress-table" data-course-id="102">
  <table class="lp-progress-table">
    <tr>
      <th>Email</th><th>Start Date</th><th>End Date</th>
      <th>Progress (%)</th><th>Expected result</th>
    </tr>
    <tr>
      <td>erin@x.com</td><td>2024-02-01</td><td></td><td>10%</td><td>-6</td>
    </tr>
  </table>
</div>
<div class="lp-student-progress-table" data-course-id="103">
  <table class="lp-progress-table">
    <tr><th>Email</th><th>Something else</th></tr>
    <tr><td>ignored@x.com</td><td>1</td></tr>
  </table>
</div>
</body></html>`

func TestParseProgressTables(t *testing.T) {
	records, err := ParseProgressTables(strings.NewReader(resultsPage))
	require.NoError(t, err)

	// Bob (not started), Carol (finished) and Dave (>80%) are skipped,
	// and the table without the required columns is ignored entirely
	require.Len(t, records, 2)

	assert.Equal(t, "alice@x.com", records[0].Email)
	assert.Equal(t, "101", records[0].CourseID)
	assert.Equal(t, "2024-01-10", records[0].StartDate)
	assert.Equal(t, "45%", records[0].Progress)
	assert.Equal(t, "2.5", records[0].ExpectedResult)

	assert.Equal(t, "erin@x.com", records[1].Email)
	assert.Equal(t, "102", records[1].CourseID)
	assert.Equal(t, "-6", records[1].ExpectedResult)
}

func TestParseProgressTablesEmptyPage(t *testing.T) {
	records, err := ParseProgressTables(strings.NewReader("<html><body><p>no data</p></body></html>"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFetchAllLogsInAndParses(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "staff", r.PostForm.Get(usernameField))
		assert.Equal(t, "secret", r.PostForm.Get(passwordField))
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "ok"})
	})
	mux.HandleFunc("/results", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("session")
		require.NoError(t, err, "results requested without the login session")
		assert.Equal(t, "ok", cookie.Value)
		w.Write([]byte(resultsPage))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	src, err := New(Config{
		LoginURL: server.URL + "/login",
		DataURL:  server.URL + "/results",
		Username: "staff",
		Password: "secret",
	})
	require.NoError(t, err)

	records, err := src.FetchAll()
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestNewRequiresURLs(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	src, err := New(Config{LoginURL: "https://school.example/login", DataURL: "https://school.example/results"})
	require.NoError(t, err)
	assert.NotNil(t, src)
}
