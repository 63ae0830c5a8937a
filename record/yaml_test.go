package record_test

import (
	"testing"

	"github.com/kernelflux/aether/record"
	"gopkg.in/yaml.v2"
)

type levelDoc struct {
	Level record.Severity `yaml:"level"`
}

func TestSeverityUnmarshalYAML(t *testing.T) {
	var doc levelDoc
	assert(yaml.Unmarshal([]byte("level: warn\n"), &doc) == nil, t)
	assert(doc.Level == record.Warn, t)
}

func TestSeverityUnmarshalYAMLUnknownName(t *testing.T) {
	var doc levelDoc
	assert(yaml.Unmarshal([]byte("level: loud\n"), &doc) != nil, t)
}

func TestSeverityMarshalYAMLRoundTrip(t *testing.T) {
	doc := levelDoc{Level: record.Error}
	out, err := yaml.Marshal(&doc)
	assert(err == nil, t)

	var got levelDoc
	assert(yaml.Unmarshal(out, &got) == nil, t)
	assert(got.Level == record.Error, t)
}

func TestSeverityMarshalYAMLUnknownValue(t *testing.T) {
	doc := levelDoc{Level: record.Severity(123)}
	_, err := yaml.Marshal(&doc)
	assert(err != nil, t)
}
