package symbols

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
)

// GoExtractor extracts top-level and method symbol paths from a Go source
// file using go/parser + go/ast: functions and types each contribute a
// symbol, and methods nest under their receiver type the way a method
// nests under its enclosing class in other languages.
type GoExtractor struct{}

func (GoExtractor) Extract(path string) (map[string]struct{}, error) {
	symbols := map[string]struct{}{}

	if _, err := os.Stat(path); err != nil {
		return symbols, nil
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.SkipObjectResolution)
	if err != nil {
		// Syntax errors yield an empty set, matching symbols.py's handling
		// of SyntaxError.
		return symbols, nil
	}

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			name := d.Name.Name
			if d.Recv != nil && len(d.Recv.List) > 0 {
				recv := receiverTypeName(d.Recv.List[0].Type)
				if recv != "" {
					symbols[recv+"::"+name] = struct{}{}
					continue
				}
			}
			symbols[name] = struct{}{}
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				symbols[ts.Name.Name] = struct{}{}
				if st, ok := ts.Type.(*ast.StructType); ok {
					for _, field := range st.Fields.List {
						for _, name := range field.Names {
							symbols[ts.Name.Name+"::"+name.Name] = struct{}{}
						}
					}
				}
			}
		}
	}

	return symbols, nil
}

func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return receiverTypeName(t.X)
	default:
		return ""
	}
}
