package config

import (
	"path/filepath"
	"strings"
)

// Paths holds fully resolved file locations for one dataset partition.
type Paths struct {
	PromotedContent     string
	Events              string
	DocumentsCategories string
	DocumentsMeta       string
	DocumentsTopics     string
	DocumentsEntities   string
	Leak                string
	AdFreqs             string
	NumAdsPerDisplay    string
	ClicksTrain         string
	ClicksTest          string
	TrainFeatures       string
	TestFeatures        string
	ScorerOutput        string
	Submission          string
}

// PartitionDir returns the sub-directory used for a partition ("for_cv/"),
// or "" for the full dataset.
func PartitionDir(partition string) string {
	if partition == "" {
		return ""
	}
	return "for_" + partition
}

// Paths resolves every file location for partition. Tables shared by all
// partitions (promoted content, document tables, leak) are never prefixed.
// A non-empty params suffix selects the scorer output "output_<params>".
func (c *Config) Paths(partition, params string) Paths {
	d := c.Data
	f := d.Files
	part := PartitionDir(partition)
	raw := func(name string) string { return filepath.Join(d.RawDir, name) }
	rawPart := func(name string) string { return filepath.Join(d.RawDir, part, name) }
	procPart := func(name string) string { return filepath.Join(d.ProcessedDir, part, name) }
	outPart := func(name string) string { return filepath.Join(d.OutputDir, part, name) }

	scorer := f.ScorerOutput
	if params = strings.TrimSpace(params); params != "" {
		scorer += "_" + params
	}
	return Paths{
		PromotedContent:     raw(f.PromotedContent),
		Events:              rawPart(f.Events),
		DocumentsCategories: raw(f.DocumentsCategories),
		DocumentsMeta:       raw(f.DocumentsMeta),
		DocumentsTopics:     raw(f.DocumentsTopics),
		DocumentsEntities:   raw(f.DocumentsEntities),
		Leak:                filepath.Join(d.ProcessedDir, f.Leak),
		AdFreqs:             procPart(f.AdFreqs),
		NumAdsPerDisplay:    procPart(f.NumAdsPerDisplay),
		ClicksTrain:         rawPart(f.ClicksTrain),
		ClicksTest:          rawPart(f.ClicksTest),
		TrainFeatures:       outPart(f.TrainFeatures),
		TestFeatures:        outPart(f.TestFeatures),
		ScorerOutput:        outPart(scorer),
		Submission:          d.SubmissionFile,
	}
}

// PartitionName labels a partition in logs, metrics and result sinks. The
// full dataset is "full".
func PartitionName(partition string) string {
	if partition == "" {
		return "full"
	}
	return partition
}
