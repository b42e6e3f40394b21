package strema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CompileYAML compiles a schema from a YAML document mapping field names to
// compact definition strings:
//
//	role: admin|user|guest
//	age: number(18,120)?
//	permissions: when role=admin *? string[] : string[]?
func CompileYAML(data []byte, opts ...CompileOption) (*Schema, error) {
	var defs map[string]string
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, AppendIssues(nil, Issue{
			Path: "/", Code: CodeParseError,
			Message: fmt.Sprintf("invalid schema YAML: %v", err),
			Cause:   err,
		})
	}
	return Compile(defs, opts...)
}

// CompileYAMLFile reads and compiles a YAML schema file.
func CompileYAMLFile(path string, opts ...CompileOption) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, AppendIssues(nil, Issue{
			Path: "/", Code: CodeParseError,
			Message: fmt.Sprintf("reading schema file: %v", err),
			Cause:   err,
		})
	}
	return CompileYAML(data, opts...)
}
