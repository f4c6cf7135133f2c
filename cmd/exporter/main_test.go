package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"example.com/personalize-go/internal/dataset"
	"example.com/personalize-go/internal/export"
)

func TestConsoleLines(t *testing.T) {
	var out bytes.Buffer
	report := console(&out)
	for _, m := range []export.Milestone{export.MilestoneStarted, export.MilestonePrepared, export.MilestoneUploading, export.MilestoneDone} {
		report(dataset.KindProduct, m)
	}
	assert.Equal(t, "Starting the export process...\n"+
		"Preparing products data to be exported...\n"+
		"Exporting to the AWS dataset...\n"+
		"Finished.\n", out.String())
}

func TestConsoleInteractionNoun(t *testing.T) {
	var out bytes.Buffer
	console(&out)(dataset.KindInteraction, export.MilestoneStarted)
	assert.Contains(t, out.String(), "Preparing interaction data to be exported...")
}
