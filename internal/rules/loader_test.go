package rules

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectionJSON(rulesBody string) []byte {
	return []byte(`{
  "collection": "test",
  "description": "test collection",
  "version": "1.0.0",
  "rules": [` + rulesBody + `]
}`)
}

const validRule = `{
  "id": "r1",
  "name": "Rule one",
  "file_paths": {"sosreport": ["var/log/messages"]},
  "pattern": "ERROR",
  "severity": "warning",
  "category": "Test",
  "title_template": "Rule one hit"
}`

func TestLoadCollections_Valid(t *testing.T) {
	fsys := fstest.MapFS{
		"test.json": &fstest.MapFile{Data: collectionJSON(validRule)},
	}
	colls, errs := loadCollections(fsys)
	require.Len(t, colls, 1)
	assert.Empty(t, errs)
	assert.Equal(t, "test", colls[0].Name)
	require.Len(t, colls[0].Rules, 1)
	assert.NotNil(t, colls[0].Rules[0].re)
}

func TestLoadCollections_YAML(t *testing.T) {
	fsys := fstest.MapFS{
		"test.yaml": &fstest.MapFile{Data: []byte(`
collection: yaml-coll
version: 1.2.0
rules:
  - id: y1
    name: Yaml rule
    file_paths:
      supportconfig: [messages.txt]
    pattern: "panic"
    severity: critical
`)},
	}
	colls, errs := loadCollections(fsys)
	require.Len(t, colls, 1)
	assert.Empty(t, errs)
	assert.Equal(t, "yaml-coll", colls[0].Name)
	assert.Equal(t, SeverityCritical, colls[0].Rules[0].Severity)
}

func TestLoadCollections_MalformedFileSkipped(t *testing.T) {
	fsys := fstest.MapFS{
		"bad.json":  &fstest.MapFile{Data: []byte(`{not json`)},
		"good.json": &fstest.MapFile{Data: collectionJSON(validRule)},
	}
	colls, errs := loadCollections(fsys)
	require.Len(t, colls, 1)
	require.Len(t, errs, 1)
	assert.Equal(t, "bad.json", errs[0].File)
}

func TestLoadCollections_BadRuleDoesNotSinkSiblings(t *testing.T) {
	badRule := `{
  "id": "broken",
  "name": "Broken",
  "pattern": "(unclosed",
  "severity": "warning"
}`
	fsys := fstest.MapFS{
		"test.json": &fstest.MapFile{Data: collectionJSON(badRule + "," + validRule)},
	}
	colls, errs := loadCollections(fsys)
	require.Len(t, colls, 1)
	require.Len(t, colls[0].Rules, 1)
	assert.Equal(t, "r1", colls[0].Rules[0].ID)
	require.Len(t, errs, 1)
	assert.Equal(t, "broken", errs[0].RuleID)
}

func TestLoadCollections_FilenameOrder(t *testing.T) {
	mk := func(name string) []byte {
		return []byte(`{"collection":"` + name + `","version":"1.0.0","rules":[` + validRule + `]}`)
	}
	fsys := fstest.MapFS{
		"20-second.json": &fstest.MapFile{Data: mk("second")},
		"10-first.json":  &fstest.MapFile{Data: mk("first")},
	}
	colls, _ := loadCollections(fsys)
	require.Len(t, colls, 2)
	assert.Equal(t, "first", colls[0].Name)
	assert.Equal(t, "second", colls[1].Name)
}

func TestCheckSchemaVersion(t *testing.T) {
	assert.Empty(t, checkSchemaVersion("1.0.0"))
	assert.Empty(t, checkSchemaVersion("1.4"))
	assert.NotEmpty(t, checkSchemaVersion(""))
	assert.NotEmpty(t, checkSchemaVersion("2.0.0"))
	assert.NotEmpty(t, checkSchemaVersion("not-a-version"))
}

func TestPrepareRule_Validation(t *testing.T) {
	base := func() Rule {
		return Rule{
			ID:       "r",
			Name:     "r",
			Pattern:  "x",
			Severity: SeverityWarning,
		}
	}

	tests := []struct {
		name   string
		mutate func(*Rule)
		wantOK bool
	}{
		{"valid", func(r *Rule) {}, true},
		{"missing id", func(r *Rule) { r.ID = "" }, false},
		{"missing pattern", func(r *Rule) { r.Pattern = "" }, false},
		{"bad severity", func(r *Rule) { r.Severity = "fatal" }, false},
		{"bad applies_to", func(r *Rule) { r.AppliesTo = "windows" }, false},
		{"mixed-case applies_to", func(r *Rule) { r.AppliesTo = "Both" }, true},
		{"uppercase applies_to", func(r *Rule) { r.AppliesTo = "SOSREPORT" }, true},
		{"bad flag", func(r *Rule) { r.PatternFlags = []string{"VERBOSE"} }, false},
		{"lookbehind rejected", func(r *Rule) { r.Pattern = "(?<=foo)bar" }, false},
		{"known flags", func(r *Rule) { r.PatternFlags = []string{"IGNORECASE", "DOTALL", "MULTILINE"} }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := base()
			tt.mutate(&rule)
			reason := prepareRule(&rule)
			if tt.wantOK {
				assert.Empty(t, reason)
			} else {
				assert.NotEmpty(t, reason)
			}
		})
	}
}

func TestPrepareRule_IgnorecaseCompiles(t *testing.T) {
	rule := Rule{ID: "r", Name: "r", Pattern: "oom", PatternFlags: []string{"ignorecase"}, Severity: SeverityWarning}
	require.Empty(t, prepareRule(&rule))
	assert.True(t, rule.re.MatchString("OOM killer"))
}

func TestPrepareRule_AppliesToNormalized(t *testing.T) {
	rule := Rule{ID: "r", Name: "r", Pattern: "x", Severity: SeverityWarning, AppliesTo: "Supportconfig"}
	require.Empty(t, prepareRule(&rule))
	assert.True(t, rule.appliesTo(FormatSupportconfig))
	assert.False(t, rule.appliesTo(FormatSosreport))
}

func TestPrepareRule_TitleDefaultsToName(t *testing.T) {
	rule := Rule{ID: "r", Name: "Display name", Pattern: "x", Severity: SeverityWarning}
	require.Empty(t, prepareRule(&rule))
	assert.Equal(t, "Display name", rule.TitleTemplate)
}
