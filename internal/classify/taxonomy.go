// Package classify maps question text to topics, tags, a difficulty tier and a solve-time
// estimate.
package classify

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"saa-question-importer/internal/domain"
)

// Category is a topic label and the keywords that select it.
type Category struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// ContextRule adds Tags whenever Phrase occurs, independent of category matching.
type ContextRule struct {
	Phrase string   `yaml:"phrase"`
	Tags   []string `yaml:"tags"`
}

// DifficultyGroup assigns Tier when any of its keywords occurs.
type DifficultyGroup struct {
	Tier     domain.Difficulty `yaml:"tier"`
	Keywords []string          `yaml:"keywords"`
}

// Taxonomy is the keyword configuration used by the Classifier. Slices are evaluated in
// order, so the order of Categories and DifficultyGroups decides ties.
type Taxonomy struct {
	Categories       []Category        `yaml:"categories"`
	ContextRules     []ContextRule     `yaml:"context_rules"`
	DifficultyGroups []DifficultyGroup `yaml:"difficulty_groups"`
	FallbackTopic    string            `yaml:"fallback_topic"`
	// Explanation length thresholds used when no difficulty keyword matches.
	AdvancedLength     int `yaml:"advanced_length"`
	IntermediateLength int `yaml:"intermediate_length"`
}

// DefaultTaxonomy returns the AWS service taxonomy.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		Categories: []Category{
			{Name: "storage", Keywords: []string{"s3", "ebs", "efs", "fsx", "glacier", "snowball", "snowmobile", "storage gateway"}},
			{Name: "compute", Keywords: []string{"ec2", "lambda", "ecs", "eks", "fargate", "batch", "auto scaling"}},
			{Name: "database", Keywords: []string{"rds", "dynamodb", "aurora", "redshift", "elasticache", "neptune", "documentdb"}},
			{Name: "networking", Keywords: []string{"vpc", "cloudfront", "route53", "elb", "alb", "nlb", "api gateway", "direct connect"}},
			{Name: "security", Keywords: []string{"iam", "cognito", "secrets manager", "kms", "waf", "shield", "inspector"}},
			{Name: "monitoring", Keywords: []string{"cloudwatch", "cloudtrail", "config", "systems manager", "x-ray"}},
			{Name: "migration", Keywords: []string{"dms", "sms", "snowball", "datasync", "migration hub"}},
			{Name: "analytics", Keywords: []string{"athena", "quicksight", "emr", "kinesis", "glue", "data pipeline"}},
			{Name: "integration", Keywords: []string{"sqs", "sns", "eventbridge", "step functions", "appflow"}},
			{Name: "management", Keywords: []string{"organizations", "control tower", "service catalog", "trusted advisor"}},
		},
		ContextRules: []ContextRule{
			{Phrase: "vpc", Tags: []string{"networking", "vpc"}},
			{Phrase: "availability zone", Tags: []string{"high-availability"}},
			{Phrase: "multi-az", Tags: []string{"high-availability", "multi-az"}},
			{Phrase: "cost", Tags: []string{"cost-optimization"}},
			{Phrase: "scalability", Tags: []string{"scalability"}},
			{Phrase: "security", Tags: []string{"security"}},
			{Phrase: "performance", Tags: []string{"performance"}},
			{Phrase: "disaster recovery", Tags: []string{"disaster-recovery"}},
			{Phrase: "backup", Tags: []string{"backup"}},
			{Phrase: "encryption", Tags: []string{"encryption"}},
			{Phrase: "compliance", Tags: []string{"compliance"}},
		},
		DifficultyGroups: []DifficultyGroup{
			{Tier: domain.DifficultyAdvanced, Keywords: []string{
				"architect", "design", "complex", "enterprise", "cross-region", "multi-region",
				"multi-account", "cross-account", "hybrid", "migration", "disaster recovery",
				"compliance", "governance",
			}},
			{Tier: domain.DifficultyIntermediate, Keywords: []string{
				"configure", "integrate", "optimize", "implement", "deploy", "multiple",
				"auto scaling", "load balancer", "security group",
			}},
			{Tier: domain.DifficultyBeginner, Keywords: []string{
				"basic", "simple", "single", "create", "enable", "setup",
			}},
		},
		FallbackTopic:      "general-aws",
		AdvancedLength:     500,
		IntermediateLength: 200,
	}
}

// LoadTaxonomy reads a YAML taxonomy from path. Fields left out of the file keep their
// DefaultTaxonomy values.
func LoadTaxonomy(path string) (Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Taxonomy{}, fmt.Errorf("reading taxonomy: %w", err)
	}
	var file Taxonomy
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Taxonomy{}, fmt.Errorf("parsing taxonomy %s: %w", path, err)
	}

	tax := DefaultTaxonomy()
	if len(file.Categories) > 0 {
		tax.Categories = file.Categories
	}
	if len(file.ContextRules) > 0 {
		tax.ContextRules = file.ContextRules
	}
	if len(file.DifficultyGroups) > 0 {
		tax.DifficultyGroups = file.DifficultyGroups
	}
	if file.FallbackTopic != "" {
		tax.FallbackTopic = file.FallbackTopic
	}
	if file.AdvancedLength > 0 {
		tax.AdvancedLength = file.AdvancedLength
	}
	if file.IntermediateLength > 0 {
		tax.IntermediateLength = file.IntermediateLength
	}
	return tax, tax.Validate()
}

// Validate checks that every category has a name and every difficulty group a known tier.
// Topic names end up as partition file names, so they may not contain path separators.
func (t Taxonomy) Validate() error {
	seen := map[string]bool{}
	for _, c := range t.Categories {
		if c.Name == "" {
			return fmt.Errorf("taxonomy category without name")
		}
		if err := checkTopicName(c.Name); err != nil {
			return err
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate taxonomy category %q", c.Name)
		}
		seen[c.Name] = true
	}
	for _, g := range t.DifficultyGroups {
		if !g.Tier.Valid() {
			return fmt.Errorf("unknown difficulty tier %q", g.Tier)
		}
	}
	if t.FallbackTopic == "" {
		return fmt.Errorf("taxonomy fallback_topic is required")
	}
	return checkTopicName(t.FallbackTopic)
}

func checkTopicName(name string) error {
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("taxonomy topic %q is not a plain file name", name)
	}
	return nil
}
