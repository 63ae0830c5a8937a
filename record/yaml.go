package record

import "fmt"

var severityName = map[string]Severity{
	"verbose": Verbose,
	"debug":   Debug,
	"info":    Info,
	"warn":    Warn,
	"error":   Error,
	"fatal":   Fatal,
	"none":    None,
}

// UnmarshalYAML lets a Severity be written as a lowercase level name
// ("info", "warn", ...) in a YAML config document instead of its raw
// int value.
func (s *Severity) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	v, ok := severityName[name]
	if !ok {
		return fmt.Errorf("record: unknown severity %q", name)
	}
	*s = v
	return nil
}

// MarshalYAML renders a Severity back to its lowercase level name.
func (s Severity) MarshalYAML() (interface{}, error) {
	for name, v := range severityName {
		if v == s {
			return name, nil
		}
	}
	return nil, fmt.Errorf("record: unmarshalable severity %d", s)
}
