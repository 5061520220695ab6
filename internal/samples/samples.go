// Package samples bundles reference programs with their expected behavior.
// Every back end is checked against the same set.
package samples

import (
	"embed"
	"fmt"
	"path"
)

//go:embed programs/*.sui
var programs embed.FS

type Sample struct {
	Name   string
	Source string
	Output []string // printed values, formatted like the interpreter prints them
	Return string   // main's return value
}

var expected = []struct {
	name   string
	output []string
	ret    string
}{
	{"assign", []string{"42"}, "0"},
	{"factorial", []string{"120"}, "120"},
	{"fibonacci", []string{"55"}, "55"},
	{"loop_sum", []string{"15"}, "15"},
	{"array_sum", []string{"15"}, "15"},
	{"bounds", []string{"7", "0", "0"}, "7"},
	{"division", []string{"25.0"}, "25.0"},
	{"branch", []string{"big", "2"}, "2"},
	{"floats", []string{"6.0", "3.5"}, "3.5"},
	{"mixed", []string{"2.5", "3", "5.0", "1"}, "3"},
}

// All returns every sample in a stable order.
func All() []Sample {
	out := make([]Sample, 0, len(expected))
	for _, e := range expected {
		out = append(out, Sample{
			Name:   e.name,
			Source: mustRead(e.name),
			Output: e.output,
			Return: e.ret,
		})
	}
	return out
}

// Get returns one sample by name.
func Get(name string) (Sample, error) {
	for _, s := range All() {
		if s.Name == name {
			return s, nil
		}
	}
	return Sample{}, fmt.Errorf("no sample named %q", name)
}

func mustRead(name string) string {
	data, err := programs.ReadFile(path.Join("programs", name+".sui"))
	if err != nil {
		panic(err)
	}
	return string(data)
}
