package ai

import (
	"strings"
	"testing"
)

func TestCleanDescription(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"plain", "  A light alloy road bike.  ", "A light alloy road bike.", false},
		{"fenced", "```text\nGreat commuter.\n```", "Great commuter.", false},
		{"label", "Description: Well kept gravel bike.", "Well kept gravel bike.", false},
		{"markdown", "# Trek FX\n* Fresh tyres\n**Ready to ride**", "Trek FX\nFresh tyres\nReady to ride", false},
		{"blank lines", "One.\n\n\n\nTwo.", "One.\n\nTwo.", false},
		{"empty", "   ", "", true},
		{"only fence", "```\n```", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CleanDescription(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err=%v wantErr=%v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Fatalf("got=%q want=%q", got, tt.want)
			}
		})
	}
}

func TestCleanDescriptionTruncates(t *testing.T) {
	long := strings.Repeat("Smooth shifting and new chain. ", 100)
	got, err := CleanDescription(long)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(got) > MaxDescriptionLen {
		t.Fatalf("len=%d exceeds %d", len(got), MaxDescriptionLen)
	}
	if !strings.HasSuffix(got, ".") {
		t.Fatalf("expected cut at sentence end, got suffix %q", got[len(got)-10:])
	}
}

func TestBuildDescriptionPrompt(t *testing.T) {
	if p := BuildDescriptionPrompt("FAIR"); !strings.Contains(p, "Condition guidance (fair)") {
		t.Fatalf("fair guidance missing")
	}
	if p := BuildDescriptionPrompt("mint"); !strings.Contains(p, "Condition guidance (good)") {
		t.Fatalf("unknown condition should fall back to good")
	}
}

func TestListingFactsString(t *testing.T) {
	f := ListingFacts{Title: "Roadster", Brand: "Giant", Notes: "  "}
	got := f.String()
	if got != "Title: Roadster\nBrand: Giant\n" {
		t.Fatalf("got=%q", got)
	}
}
