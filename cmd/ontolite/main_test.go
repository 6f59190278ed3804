package main

import (
	"encoding/json"
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/ontolite/ontolite/vector"
)

func newLoggerContext(t *testing.T, level string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.String("log-level", "", "")
	require.NoError(t, set.Set("log-level", level))
	return cli.NewContext(cli.NewApp(), set, nil)
}

func TestSetupLoggerLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "WARN"} {
		assert.NoError(t, setupLogger(newLoggerContext(t, level)), level)
	}
}

func TestSetupLoggerRejectsUnknownLevel(t *testing.T) {
	err := setupLogger(newLoggerContext(t, "verbose"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestParseKind(t *testing.T) {
	kind, err := parseKind("document")
	require.NoError(t, err)
	assert.Equal(t, vector.KindDocument, kind)

	kind, err = parseKind("concept")
	require.NoError(t, err)
	assert.Equal(t, vector.KindConcept, kind)

	_, err = parseKind("chunk")
	assert.Error(t, err)
}

func TestExtractionFileToExtraction(t *testing.T) {
	input := `{
		"title": "Business Plan",
		"summary": "Company direction for the next year.",
		"concepts": [
			{"label": "Runway", "type": "Metric", "confidence": 0.9},
			{"label": "Hiring Plan", "type": "Topic", "confidence": 0.8}
		],
		"relations": [
			{"src": "Runway", "dst": "Hiring Plan", "verb": "supports", "confidence": 0.7}
		]
	}`

	var file extractionFile
	require.NoError(t, json.Unmarshal([]byte(input), &file))

	doc, concepts, relations, err := file.toExtraction()
	require.NoError(t, err)
	assert.Equal(t, "Business Plan", doc.Title)
	require.Len(t, concepts, 2)
	require.Len(t, relations, 1)

	assert.NotZero(t, concepts[0].Id)
	assert.NotEqual(t, concepts[0].Id, concepts[1].Id)
	assert.Equal(t, concepts[0].Id, relations[0].SrcId)
	assert.Equal(t, concepts[1].Id, relations[0].DstId)
	assert.Equal(t, "supports", relations[0].Verb)
}

func TestExtractionFileRejectsDuplicateLabels(t *testing.T) {
	input := `{
		"title": "Dup",
		"concepts": [
			{"label": "Runway", "type": "Metric", "confidence": 0.9},
			{"label": "Runway", "type": "Topic", "confidence": 0.5}
		]
	}`

	var file extractionFile
	require.NoError(t, json.Unmarshal([]byte(input), &file))

	_, _, _, err := file.toExtraction()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate concept label")
}

func TestExtractionFileRejectsUnknownRelationEndpoint(t *testing.T) {
	input := `{
		"title": "Broken",
		"concepts": [{"label": "Runway", "type": "Metric", "confidence": 0.9}],
		"relations": [{"src": "Runway", "dst": "Missing", "verb": "supports", "confidence": 0.7}]
	}`

	var file extractionFile
	require.NoError(t, json.Unmarshal([]byte(input), &file))

	_, _, _, err := file.toExtraction()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown concept")
}
