package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/FranksOps/scout/internal/placement"
)

var sampleHits = []placement.Hit{
	{Sector: "Media & ICT", PlacementType: "internship", Query: "q1", URL: "https://acme.co.ug/careers"},
	{Sector: "Media & ICT", PlacementType: "internship", Query: "q1", URL: "https://acme.co.ug/careers"},
	{Sector: "Finance & Commerce", PlacementType: "graduate trainee", Query: "q2", URL: "https://bank.co.ug/trainee"},
}

func TestWriteListing(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteListing(&buf, sampleHits); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "\n--- RESULTS ---\n" +
		"[Media & ICT | internship] https://acme.co.ug/careers\n" +
		"[Media & ICT | internship] https://acme.co.ug/careers\n" +
		"[Finance & Commerce | graduate trainee] https://bank.co.ug/trainee\n"
	if buf.String() != want {
		t.Errorf("unexpected listing:\n%s", buf.String())
	}
}

func TestGenerateSummary(t *testing.T) {
	s := GenerateSummary(sampleHits)

	if s.TotalHits != 3 {
		t.Errorf("expected 3 hits, got %d", s.TotalHits)
	}
	if s.DistinctURLs != 2 {
		t.Errorf("expected 2 distinct URLs, got %d", s.DistinctURLs)
	}
	if s.DistinctQueries != 2 {
		t.Errorf("expected 2 distinct queries, got %d", s.DistinctQueries)
	}
	if len(s.BySector) != 2 || s.BySector[0].Label != "Media & ICT" || s.BySector[0].Hits != 2 {
		t.Errorf("unexpected sector tally: %+v", s.BySector)
	}
	if len(s.ByPlacementType) != 2 || s.ByPlacementType[1].Label != "graduate trainee" {
		t.Errorf("unexpected placement type tally: %+v", s.ByPlacementType)
	}

	empty := GenerateSummary(nil)
	if empty.TotalHits != 0 || len(empty.BySector) != 0 {
		t.Errorf("expected empty summary, got %+v", empty)
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, GenerateSummary(sampleHits)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Hits:             3", "Media & ICT: 2", "graduate trainee: 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in summary:\n%s", want, out)
		}
	}

	buf.Reset()
	_ = WriteText(&buf, GenerateSummary(nil))
	if !strings.Contains(buf.String(), "None") {
		t.Errorf("expected None for empty tallies")
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, GenerateSummary(sampleHits)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded Summary
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if decoded.TotalHits != 3 {
		t.Errorf("expected 3 hits, got %d", decoded.TotalHits)
	}
}

func TestWriteHits_Formats(t *testing.T) {
	tests := []struct {
		format Format
		want   []string
	}{
		{FormatText, []string{"--- RESULTS ---", "[Finance & Commerce | graduate trainee] https://bank.co.ug/trainee"}},
		{FormatJSON, []string{`"placement_type": "graduate trainee"`, `"total_hits": 3`}},
		{FormatCSV, []string{"sector,placement_type,query,url", "Finance & Commerce,graduate trainee,q2,https://bank.co.ug/trainee"}},
		{FormatYAML, []string{"placement_type: graduate trainee", "total_hits: 3"}},
		{FormatTable, []string{"Placement Type", "https://bank.co.ug/trainee"}},
		{FormatHTML, []string{"<h3>Media &amp; ICT</h3>", `<a href="https://bank.co.ug/trainee">`}},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteHits(&buf, tt.format, sampleHits); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("expected %q in output:\n%s", want, buf.String())
				}
			}
		})
	}
}

func TestWriteHits_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHits(&buf, FormatHTML, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "No hits.") {
		t.Errorf("expected empty html report marker")
	}

	buf.Reset()
	if err := WriteHits(&buf, FormatJSON, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `"hits": []`) {
		t.Errorf("expected empty hits array, got %s", buf.String())
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(""); err != nil || f != FormatText {
		t.Errorf("expected text default, got %q %v", f, err)
	}
	if f, err := ParseFormat("CSV"); err != nil || f != FormatCSV {
		t.Errorf("expected csv, got %q %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Errorf("expected error for unknown format")
	}
	if err := WriteHits(&bytes.Buffer{}, Format("xml"), nil); err == nil {
		t.Errorf("expected error writing unknown format")
	}
}
