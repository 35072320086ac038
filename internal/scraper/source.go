package scraper

import (
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/edubot/internal/progress"
	"golang.org/x/net/html"
)

// Form field ids on the portal login page.
const (
	usernameField = "username-1098"
	passwordField = "user_password-1098"
)

// Config points the scraper at the course portal.
type Config struct {
	LoginURL string
	DataURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// Source fetches student progress from the course portal's results page:
// it logs in through the membership form, downloads the page and parses
// the per-course progress tables.
type Source struct {
	config Config
	client *http.Client
}

// New creates a portal-backed progress source.
func New(config Config) (*Source, error) {
	if config.LoginURL == "" || config.DataURL == "" {
		return nil, fmt.Errorf("portal login and data URLs must be set")
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	// Cookie jar keeps the login session across the two requests
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %v", err)
	}

	return &Source{
		config: config,
		client: &http.Client{Jar: jar, Timeout: config.Timeout},
	}, nil
}

// FetchAll implements progress.Source.
func (s *Source) FetchAll() ([]progress.RawRecord, error) {
	if err := s.login(); err != nil {
		return nil, err
	}

	resp, err := s.client.Get(s.config.DataURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch results page: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("results page returned status %d", resp.StatusCode)
	}

	return ParseProgressTables(resp.Body)
}

// login submits the membership form and keeps the session cookie.
func (s *Source) login() error {
	form := url.Values{
		usernameField: {s.config.Username},
		passwordField: {s.config.Password},
	}

	resp, err := s.client.PostForm(s.config.LoginURL, form)
	if err != nil {
		return fmt.Errorf("failed to log in to portal: %v", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("portal login returned status %d", resp.StatusCode)
	}
	return nil
}

// Required columns of a progress table; tables missing any of them are
// ignored.
var requiredColumns = []string{"Email", "Start Date", "End Date", "Progress (%)", "Expected result"}

// ParseProgressTables extracts student rows from the results page HTML.
// Rows without a start date, with a finished course, or with completion
// above 80% are dropped the same way the portal report does.
func ParseProgressTables(r io.Reader) ([]progress.RawRecord, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse results page: %v", err)
	}

	var records []progress.RawRecord
	for _, div := range findAll(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "lp-student-progress-table")
	}) {
		courseID := attrValue(div, "data-course-id")
		table := findFirst(div, func(n *html.Node) bool {
			return n.Type == html.ElementNode && n.Data == "table" && hasClass(n, "lp-progress-table")
		})
		if table == nil {
			continue
		}
		records = append(records, parseTable(table, courseID)...)
	}
	return records, nil
}

// parseTable reads one course table: header row gives column indices,
// remaining rows give students.
func parseTable(table *html.Node, courseID string) []progress.RawRecord {
	rows := findAll(table, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "tr"
	})
	if len(rows) < 2 {
		return nil
	}

	indices := make(map[string]int)
	for idx, th := range findAll(rows[0], func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "th"
	}) {
		indices[strings.TrimSpace(nodeText(th))] = idx
	}
	for _, col := range requiredColumns {
		if _, ok := indices[col]; !ok {
			return nil
		}
	}

	var records []progress.RawRecord
	for _, row := range rows[1:] {
		cells := findAll(row, func(n *html.Node) bool {
			return n.Type == html.ElementNode && n.Data == "td"
		})
		texts := make([]string, len(cells))
		for i, cell := range cells {
			texts[i] = strings.TrimSpace(nodeText(cell))
		}

		rec := progress.RawRecord{
			Email:          cellAt(texts, indices["Email"]),
			StartDate:      cellAt(texts, indices["Start Date"]),
			EndDate:        cellAt(texts, indices["End Date"]),
			Progress:       cellAt(texts, indices["Progress (%)"]),
			ExpectedResult: cellAt(texts, indices["Expected result"]),
			CourseID:       courseID,
		}

		if skipRow(rec) {
			continue
		}
		records = append(records, rec)
	}
	return records
}

// skipRow filters students the report excludes: not started, already
// finished, or nearly done.
func skipRow(rec progress.RawRecord) bool {
	if rec.StartDate == "N/A" || rec.StartDate == "" {
		return true
	}
	if rec.EndDate != "" && rec.EndDate != "N/A" {
		return true
	}
	if pct, err := strconv.ParseFloat(strings.TrimSuffix(rec.Progress, "%"), 64); err == nil && pct > 80 {
		return true
	}
	return false
}

func cellAt(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return cells[idx]
}

// --- small html.Node helpers ---

func findAll(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var found []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if match(n) {
			found = append(found, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return found
}

func findFirst(root *html.Node, match func(*html.Node) bool) *html.Node {
	nodes := findAll(root, match)
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, field := range strings.Fields(attrValue(n, "class")) {
		if field == class {
			return true
		}
	}
	return false
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
