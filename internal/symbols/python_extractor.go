package symbols

import (
	"bufio"
	"os"
	"regexp"
	"strings"
)

// PythonExtractor is a structural fallback extractor for .py files. It does
// not build a real AST (no Python AST library ships in this ecosystem);
// instead it tracks indentation to approximate the nesting a def/class walk
// would derive, good enough for symbol-level overlap detection rather than
// full semantic analysis.
type PythonExtractor struct{}

var pyDefRe = regexp.MustCompile(`^(\s*)(?:async\s+)?def\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
var pyClassRe = regexp.MustCompile(`^(\s*)class\s+([A-Za-z_][A-Za-z0-9_]*)\s*[:(]`)

func (PythonExtractor) Extract(path string) (map[string]struct{}, error) {
	symbols := map[string]struct{}{}

	f, err := os.Open(path)
	if err != nil {
		return symbols, nil
	}
	defer f.Close()

	type frame struct {
		indent int
		name   string
	}
	var stack []frame

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " \t"))

		for len(stack) > 0 && indent <= stack[len(stack)-1].indent {
			stack = stack[:len(stack)-1]
		}

		var name string
		if m := pyDefRe.FindStringSubmatch(line); m != nil {
			name = m[2]
		} else if m := pyClassRe.FindStringSubmatch(line); m != nil {
			name = m[2]
		} else {
			continue
		}

		prefix := make([]string, len(stack))
		for i, fr := range stack {
			prefix[i] = fr.name
		}
		full := name
		if len(prefix) > 0 {
			full = strings.Join(prefix, "::") + "::" + name
		}
		symbols[full] = struct{}{}
		stack = append(stack, frame{indent: indent, name: name})
	}

	return symbols, nil
}
