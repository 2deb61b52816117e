package codetest

import (
	"regexp"
	"strings"

	"github.com/codeguardian/guardian/shared/schema"
)

// Method is one method recovered from a class body.
type Method struct {
	Name   string
	Params []string
}

// Class is one class (or struct) recovered from the input, with its
// methods split into public and private by naming convention.
type Class struct {
	Name           string
	Methods        []Method
	CtorParams     []string
	PublicMethods  []string
	PrivateMethods []string
}

// Analysis is the structural summary the generator works from. Every
// identifier that appears in generated tests must come from here.
type Analysis struct {
	Classes   []Class
	Functions []string
	Imports   []string
	Lines     int
}

// ClassNames returns the names of all recovered classes, in source order.
func (a Analysis) ClassNames() []string {
	names := make([]string, len(a.Classes))
	for i, c := range a.Classes {
		names[i] = c.Name
	}
	return names
}

var (
	pyClassRe    = regexp.MustCompile(`^class\s+(\w+)\s*[(:]`)
	pyDefRe      = regexp.MustCompile(`^(\s*)def\s+(\w+)\s*\(([^)]*)\)`)
	pyImportRe   = regexp.MustCompile(`^import\s+([\w.]+)`)
	pyFromRe     = regexp.MustCompile(`^from\s+([\w.]+)\s+import`)
	jsClassRe    = regexp.MustCompile(`\bclass\s+(\w+)`)
	jsFuncRe     = regexp.MustCompile(`^(?:export\s+)?(?:async\s+)?function\s+(\w+)\s*\(([^)]*)\)`)
	jsMethodRe   = regexp.MustCompile(`^\s+(?:async\s+)?(\w+)\s*\(([^)]*)\)\s*{`)
	javaClassRe  = regexp.MustCompile(`\b(?:class|interface)\s+(\w+)`)
	javaMethodRe = regexp.MustCompile(`(?:public|protected|private|internal|static|final|override|virtual|\s)+[\w<>\[\],\s]+\s(\w+)\s*\(([^)]*)\)\s*[{;]`)
	goFuncRe     = regexp.MustCompile(`^func\s+(\w+)\s*\(([^)]*)\)`)
	goMethodRe   = regexp.MustCompile(`^func\s+\(\s*\w+\s+\*?(\w+)\s*\)\s+(\w+)\s*\(([^)]*)\)`)
	goStructRe   = regexp.MustCompile(`^type\s+(\w+)\s+struct\b`)
	goImportRe   = regexp.MustCompile(`^\s*(?:\w+\s+)?"([^"]+)"`)
)

// Analyze recovers classes, methods, constructor parameters, top-level
// functions, and imports from raw source text. The analysis is purely
// syntactic; code in an unsupported language yields an empty result.
func Analyze(code string, lang schema.Language) Analysis {
	a := Analysis{Lines: countLines(code)}
	switch lang {
	case schema.LangPython:
		analyzePython(code, &a)
	case schema.LangJavaScript, schema.LangTypeScript:
		analyzeJS(code, &a)
	case schema.LangJava, schema.LangCSharp:
		analyzeJavaLike(code, &a)
	case schema.LangGo:
		analyzeGo(code, &a)
	}
	return a
}

func countLines(code string) int {
	n := 0
	for _, line := range strings.Split(code, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

// analyzePython walks the source line by line, tracking whether a def
// sits inside the most recent class body by its indentation.
func analyzePython(code string, a *Analysis) {
	var current *Class
	for _, line := range strings.Split(code, "\n") {
		if m := pyImportRe.FindStringSubmatch(line); m != nil {
			a.Imports = append(a.Imports, m[1])
			continue
		}
		if m := pyFromRe.FindStringSubmatch(line); m != nil {
			a.Imports = append(a.Imports, m[1])
			continue
		}
		if m := pyClassRe.FindStringSubmatch(line); m != nil {
			a.Classes = append(a.Classes, Class{Name: m[1]})
			current = &a.Classes[len(a.Classes)-1]
			continue
		}
		m := pyDefRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		indent, name, rawParams := m[1], m[2], m[3]
		if indent == "" {
			// Top-level function.
			current = nil
			a.Functions = append(a.Functions, name)
			continue
		}
		if current == nil {
			continue
		}
		params := parseParams(rawParams, "self", "cls")
		current.Methods = append(current.Methods, Method{Name: name, Params: params})
		if name == "__init__" {
			current.CtorParams = params
		}
		if strings.HasPrefix(name, "_") && !strings.HasPrefix(name, "__") {
			current.PrivateMethods = append(current.PrivateMethods, name)
		} else {
			current.PublicMethods = append(current.PublicMethods, name)
		}
	}
}

func analyzeJS(code string, a *Analysis) {
	var current *Class
	for _, line := range strings.Split(code, "\n") {
		if m := jsClassRe.FindStringSubmatch(line); m != nil {
			a.Classes = append(a.Classes, Class{Name: m[1]})
			current = &a.Classes[len(a.Classes)-1]
			continue
		}
		if m := jsFuncRe.FindStringSubmatch(line); m != nil {
			current = nil
			a.Functions = append(a.Functions, m[1])
			continue
		}
		if current == nil {
			continue
		}
		m := jsMethodRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := m[1]
		if name == "if" || name == "for" || name == "while" || name == "switch" || name == "catch" || name == "return" {
			continue
		}
		params := parseParams(m[2])
		current.Methods = append(current.Methods, Method{Name: name, Params: params})
		if name == "constructor" {
			current.CtorParams = params
		}
		if strings.HasPrefix(name, "_") || strings.HasPrefix(name, "#") {
			current.PrivateMethods = append(current.PrivateMethods, name)
		} else {
			current.PublicMethods = append(current.PublicMethods, name)
		}
	}
}

func analyzeJavaLike(code string, a *Analysis) {
	var current *Class
	for _, line := range strings.Split(code, "\n") {
		if m := javaClassRe.FindStringSubmatch(line); m != nil {
			a.Classes = append(a.Classes, Class{Name: m[1]})
			current = &a.Classes[len(a.Classes)-1]
			continue
		}
		if current == nil {
			continue
		}
		m := javaMethodRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := m[1]
		params := parseJavaParams(m[2])
		current.Methods = append(current.Methods, Method{Name: name, Params: params})
		if name == current.Name {
			current.CtorParams = params
		}
		if strings.Contains(line, "private") {
			current.PrivateMethods = append(current.PrivateMethods, name)
		} else {
			current.PublicMethods = append(current.PublicMethods, name)
		}
	}
}

func analyzeGo(code string, a *Analysis) {
	// Index into a.Classes by receiver name. Positions stay valid across
	// appends, unlike element pointers.
	byName := map[string]int{}
	inImports := false
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "import (" {
			inImports = true
			continue
		}
		if inImports {
			if trimmed == ")" {
				inImports = false
			} else if m := goImportRe.FindStringSubmatch(line); m != nil {
				a.Imports = append(a.Imports, m[1])
			}
			continue
		}
		if m := goStructRe.FindStringSubmatch(line); m != nil {
			byName[m[1]] = len(a.Classes)
			a.Classes = append(a.Classes, Class{Name: m[1]})
			continue
		}
		if m := goMethodRe.FindStringSubmatch(line); m != nil {
			recv, name := m[1], m[2]
			i, ok := byName[recv]
			if !ok {
				i = len(a.Classes)
				byName[recv] = i
				a.Classes = append(a.Classes, Class{Name: recv})
			}
			c := &a.Classes[i]
			c.Methods = append(c.Methods, Method{Name: name, Params: parseGoParams(m[3])})
			if name[0] >= 'a' && name[0] <= 'z' {
				c.PrivateMethods = append(c.PrivateMethods, name)
			} else {
				c.PublicMethods = append(c.PublicMethods, name)
			}
			continue
		}
		if m := goFuncRe.FindStringSubmatch(line); m != nil {
			a.Functions = append(a.Functions, m[1])
		}
	}
}

// parseParams splits a Python/JS parameter list, stripping type
// annotations and default values, and dropping the listed receivers.
func parseParams(raw string, skip ...string) []string {
	var params []string
	for _, part := range strings.Split(raw, ",") {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}
		if i := strings.IndexAny(p, ":="); i >= 0 {
			p = strings.TrimSpace(p[:i])
		}
		p = strings.TrimPrefix(p, "*")
		p = strings.TrimPrefix(p, "*")
		skipIt := p == ""
		for _, s := range skip {
			if p == s {
				skipIt = true
			}
		}
		if !skipIt {
			params = append(params, p)
		}
	}
	return params
}

// parseJavaParams takes the last identifier of each "Type name" pair.
func parseJavaParams(raw string) []string {
	var params []string
	for _, part := range strings.Split(raw, ",") {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) == 0 {
			continue
		}
		params = append(params, fields[len(fields)-1])
	}
	return params
}

// parseGoParams takes the first identifier of each "name Type" group.
func parseGoParams(raw string) []string {
	var params []string
	for _, part := range strings.Split(raw, ",") {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) == 0 {
			continue
		}
		params = append(params, fields[0])
	}
	return params
}
