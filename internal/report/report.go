package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strings"
	texttemplate "text/template"

	"github.com/FranksOps/scout/internal/placement"
	"github.com/gocarina/gocsv"
	"github.com/rodaine/table"
	"gopkg.in/yaml.v3"
)

// Format names an export format for WriteHits.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatYAML  Format = "yaml"
	FormatTable Format = "table"
	FormatHTML  Format = "html"
)

// Formats lists every supported format.
var Formats = []Format{FormatText, FormatJSON, FormatCSV, FormatYAML, FormatTable, FormatHTML}

// ParseFormat validates a format name. Empty selects FormatText.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FormatText, nil
	}
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

// ResultsHeader precedes the hit listing on standard output.
const ResultsHeader = "\n--- RESULTS ---\n"

// WriteListing writes the results header followed by one
// "[<sector> | <placement type>] <url>" line per hit, in order.
func WriteListing(w io.Writer, hits []placement.Hit) error {
	if _, err := io.WriteString(w, ResultsHeader); err != nil {
		return fmt.Errorf("failed to write listing: %w", err)
	}
	for _, h := range hits {
		if _, err := fmt.Fprintf(w, "[%s | %s] %s\n", h.Sector, h.PlacementType, h.URL); err != nil {
			return fmt.Errorf("failed to write listing: %w", err)
		}
	}
	return nil
}

// Count is one row of a per-label tally.
type Count struct {
	Label string `json:"label" yaml:"label"`
	Hits  int    `json:"hits" yaml:"hits"`
}

// Summary contains aggregated figures about a scan's hits.
type Summary struct {
	TotalHits       int     `json:"total_hits" yaml:"total_hits"`
	DistinctURLs    int     `json:"distinct_urls" yaml:"distinct_urls"`
	DistinctQueries int     `json:"distinct_queries" yaml:"distinct_queries"`
	BySector        []Count `json:"by_sector" yaml:"by_sector"`
	ByPlacementType []Count `json:"by_placement_type" yaml:"by_placement_type"`
}

// GenerateSummary tallies hits. Tallies keep first-seen order so the summary
// reads in the same order as the scan.
func GenerateSummary(hits []placement.Hit) Summary {
	s := Summary{TotalHits: len(hits)}

	urls := make(map[string]struct{})
	queries := make(map[string]struct{})
	var sectors, types tally
	for _, h := range hits {
		urls[h.URL] = struct{}{}
		queries[h.Query] = struct{}{}
		sectors.add(string(h.Sector))
		types.add(string(h.PlacementType))
	}

	s.DistinctURLs = len(urls)
	s.DistinctQueries = len(queries)
	s.BySector = sectors.counts
	s.ByPlacementType = types.counts
	return s
}

type tally struct {
	index  map[string]int
	counts []Count
}

func (t *tally) add(label string) {
	if t.index == nil {
		t.index = make(map[string]int)
	}
	i, ok := t.index[label]
	if !ok {
		i = len(t.counts)
		t.index[label] = i
		t.counts = append(t.counts, Count{Label: label})
	}
	t.counts[i].Hits++
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	return nil
}

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	const textTmpl = `Scout Scan Summary
------------------
Hits:             {{.TotalHits}}
Distinct URLs:    {{.DistinctURLs}}
Distinct Queries: {{.DistinctQueries}}

By Sector:
{{- range .BySector}}
  {{.Label}}: {{.Hits}}
{{- else}}
  None
{{- end}}

By Placement Type:
{{- range .ByPlacementType}}
  {{.Label}}: {{.Hits}}
{{- else}}
  None
{{- end}}
`

	t, err := texttemplate.New("textSummary").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("failed to parse summary template: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("failed to render summary: %w", err)
	}

	return nil
}

// hitRow flattens a Hit into plain string columns for CSV and tables.
type hitRow struct {
	Sector        string `csv:"sector"`
	PlacementType string `csv:"placement_type"`
	Query         string `csv:"query"`
	URL           string `csv:"url"`
}

func toRows(hits []placement.Hit) []*hitRow {
	rows := make([]*hitRow, 0, len(hits))
	for _, h := range hits {
		rows = append(rows, &hitRow{
			Sector:        string(h.Sector),
			PlacementType: string(h.PlacementType),
			Query:         h.Query,
			URL:           h.URL,
		})
	}
	return rows
}

// WriteHits exports hits in the given format.
func WriteHits(w io.Writer, format Format, hits []placement.Hit) error {
	if hits == nil {
		hits = []placement.Hit{}
	}

	switch format {
	case FormatText, "":
		return WriteListing(w, hits)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(struct {
			Hits    []placement.Hit `json:"hits"`
			Summary Summary         `json:"summary"`
		}{hits, GenerateSummary(hits)}); err != nil {
			return fmt.Errorf("failed to encode hits: %w", err)
		}
		return nil
	case FormatCSV:
		if err := gocsv.Marshal(toRows(hits), w); err != nil {
			return fmt.Errorf("failed to encode hits as csv: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(map[string]any{
			"hits":    hits,
			"summary": GenerateSummary(hits),
		}); err != nil {
			return fmt.Errorf("failed to encode hits as yaml: %w", err)
		}
		return enc.Close()
	case FormatTable:
		tbl := table.New("Sector", "Placement Type", "URL").WithWriter(w)
		for _, r := range toRows(hits) {
			tbl.AddRow(r.Sector, r.PlacementType, r.URL)
		}
		tbl.Print()
		return nil
	case FormatHTML:
		return writeHTML(w, hits)
	}
	return fmt.Errorf("unknown report format %q", format)
}

type htmlGroup struct {
	Sector string
	Hits   []placement.Hit
}

func writeHTML(w io.Writer, hits []placement.Hit) error {
	const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<title>Scout Placement Report</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  table { border-collapse: collapse; margin-top: 10px; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; }
  th { background: #eaeaea; }
</style>
</head>
<body>
  <h1>Scout Placement Report</h1>

  <div class="stat-card">
    <div>Hits</div>
    <div class="stat-val">{{.Summary.TotalHits}}</div>
  </div>
  <div class="stat-card">
    <div>Distinct URLs</div>
    <div class="stat-val">{{.Summary.DistinctURLs}}</div>
  </div>
  <div class="stat-card">
    <div>Queries With Hits</div>
    <div class="stat-val">{{.Summary.DistinctQueries}}</div>
  </div>
{{range .Groups}}
  <h3>{{.Sector}}</h3>
  <table>
    <tr><th>Placement Type</th><th>Link</th><th>Query</th></tr>
    {{- range .Hits}}
    <tr><td>{{.PlacementType}}</td><td><a href="{{.URL}}">{{.URL}}</a></td><td>{{.Query}}</td></tr>
    {{- end}}
  </table>
{{else}}
  <p>No hits.</p>
{{end}}
</body>
</html>
`
	var groups []htmlGroup
	index := make(map[placement.Sector]int)
	for _, h := range hits {
		i, ok := index[h.Sector]
		if !ok {
			i = len(groups)
			index[h.Sector] = i
			groups = append(groups, htmlGroup{Sector: string(h.Sector)})
		}
		groups[i].Hits = append(groups[i].Hits, h)
	}

	t, err := template.New("htmlReport").Parse(htmlTmpl)
	if err != nil {
		return fmt.Errorf("failed to parse html template: %w", err)
	}

	data := struct {
		Summary Summary
		Groups  []htmlGroup
	}{GenerateSummary(hits), groups}
	if err := t.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render html report: %w", err)
	}
	return nil
}
