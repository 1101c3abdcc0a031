package classify

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"saa-question-importer/internal/domain"
)

func TestClassifyTopics(t *testing.T) {
	c := New(DefaultTaxonomy())

	tests := []struct {
		name          string
		stem          string
		explanation   string
		wantPrimary   string
		wantSecondary string
		wantTags      []string
	}{
		{
			name:        "single category",
			stem:        "A company needs S3 storage.",
			explanation: "S3 is cheapest.",
			wantPrimary: "storage",
			wantTags:    []string{"s3"},
		},
		{
			name:          "secondary is next distinct category",
			stem:          "Store objects in S3 and EBS volumes, process with Lambda",
			wantPrimary:   "storage",
			wantSecondary: "compute",
			wantTags:      []string{"s3", "ebs", "lambda"},
		},
		{
			name:          "context tags deduplicated in first-seen order",
			stem:          "Deploy RDS Multi-AZ in a VPC for security",
			wantPrimary:   "database",
			wantSecondary: "networking",
			wantTags:      []string{"rds", "vpc", "networking", "high-availability", "multi-az", "security"},
		},
		{
			name:        "case-insensitive keyword match",
			stem:        "Which DYNAMODB feature fits?",
			wantPrimary: "database",
			wantTags:    []string{"dynamodb"},
		},
		{
			name:        "fallback topic",
			stem:        "What is the capital of France?",
			wantPrimary: "general-aws",
			wantTags:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.stem, tt.explanation)
			if got.PrimaryTopic != tt.wantPrimary {
				t.Errorf("PrimaryTopic = %q, want %q", got.PrimaryTopic, tt.wantPrimary)
			}
			if got.SecondaryTopic != tt.wantSecondary {
				t.Errorf("SecondaryTopic = %q, want %q", got.SecondaryTopic, tt.wantSecondary)
			}
			if !reflect.DeepEqual(got.Tags, tt.wantTags) {
				t.Errorf("Tags = %q, want %q", got.Tags, tt.wantTags)
			}
		})
	}
}

func TestDifficulty(t *testing.T) {
	c := New(DefaultTaxonomy())

	tests := []struct {
		name        string
		stem        string
		explanation string
		want        domain.Difficulty
	}{
		{"advanced wins over beginner", "An architect must create the bucket", "", domain.DifficultyAdvanced},
		{"intermediate keyword", "Deploy the app", "", domain.DifficultyIntermediate},
		{"beginner keyword", "Enable the feature", "", domain.DifficultyBeginner},
		{"long explanation", "Pick one", strings.Repeat("x", 501), domain.DifficultyAdvanced},
		{"medium explanation", "Pick one", strings.Repeat("x", 201), domain.DifficultyIntermediate},
		{"threshold is exclusive", "Pick one", strings.Repeat("x", 200), domain.DifficultyBeginner},
		{"short explanation", "Pick one", "S3 is cheapest.", domain.DifficultyBeginner},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Difficulty(tt.stem, tt.explanation); got != tt.want {
				t.Errorf("Difficulty() = %q, want %q", got, tt.want)
			}
			if got := c.Classify(tt.stem, tt.explanation).Difficulty; got != tt.want {
				t.Errorf("Classify().Difficulty = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEstimateTime(t *testing.T) {
	tests := []struct {
		name        string
		options     int
		explanation string
		want        int
	}{
		{"four options no explanation", 4, "", 120},
		{"rounds half up", 2, "S3 is cheapest.", 92},
		{"reading time capped", 0, strings.Repeat("y", 1000), 120},
		{"rounds fractional read time", 4, "abcde", 121},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateTime(tt.options, tt.explanation); got != tt.want {
				t.Errorf("EstimateTime() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestClassifyIsDeterministicUnderConcurrency(t *testing.T) {
	c := New(DefaultTaxonomy())
	stem := "Deploy RDS Multi-AZ in a VPC for security"
	want := c.Classify(stem, "")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := c.Classify(stem, ""); !reflect.DeepEqual(got, want) {
				t.Errorf("concurrent Classify() = %+v, want %+v", got, want)
			}
		}()
	}
	wg.Wait()
}

func TestNewCopiesTaxonomy(t *testing.T) {
	tax := DefaultTaxonomy()
	c := New(tax)
	tax.Categories[0].Keywords[0] = "nothing-matches-this"

	if got := c.Classify("S3 bucket", "").PrimaryTopic; got != "storage" {
		t.Fatalf("PrimaryTopic = %q, want storage", got)
	}
}

func TestLoadTaxonomy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taxonomy.yaml")
	content := `
categories:
  - name: kubernetes
    keywords: [pod, deployment]
fallback_topic: misc
advanced_length: 50
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write taxonomy: %v", err)
	}

	tax, err := LoadTaxonomy(path)
	if err != nil {
		t.Fatalf("LoadTaxonomy() error = %v", err)
	}
	if len(tax.Categories) != 1 || tax.Categories[0].Name != "kubernetes" {
		t.Fatalf("unexpected categories: %+v", tax.Categories)
	}
	if tax.IntermediateLength != 200 || len(tax.DifficultyGroups) != 3 {
		t.Fatalf("expected defaults for omitted fields, got %+v", tax)
	}

	c := New(tax)
	if got := c.Classify("Restart the Pod", "").PrimaryTopic; got != "kubernetes" {
		t.Fatalf("PrimaryTopic = %q, want kubernetes", got)
	}
	if got := c.Classify("Unrelated", "").PrimaryTopic; got != "misc" {
		t.Fatalf("PrimaryTopic = %q, want misc", got)
	}
	if got := c.Difficulty("Pick", strings.Repeat("z", 51)); got != domain.DifficultyAdvanced {
		t.Fatalf("Difficulty() = %q, want advanced", got)
	}
}

func TestLoadTaxonomyRejectsInvalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"duplicate category", "categories:\n  - name: a\n  - name: a\n"},
		{"unknown tier", "difficulty_groups:\n  - tier: expert\n    keywords: [x]\n"},
		{"bad yaml", "categories: [\n"},
		{"slash in category", "categories:\n  - name: a/b\n    keywords: [x]\n"},
		{"backslash in category", "categories:\n  - name: 'a\\b'\n    keywords: [x]\n"},
		{"parent directory fallback", "fallback_topic: ..\n"},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "tax"+string(rune('0'+i))+".yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("write taxonomy: %v", err)
			}
			if _, err := LoadTaxonomy(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	if _, err := LoadTaxonomy(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
