package generator

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ImportPath is the import path of the hxview package.
const ImportPath = "github.com/pthm/hxview"

// nameDirective overrides the registered name of a view:
//
//	//hxview:name Dashboard
//	type DashboardView struct { *hxview.View }
const nameDirective = "hxview:name"

// Options configures the generator.
type Options struct {
	DryRun bool

	// Out receives progress messages. Defaults to os.Stdout.
	Out io.Writer
}

// Generator generates hxview view registration code.
type Generator struct {
	opts Options
	fset *token.FileSet
}

// New creates a new generator.
func New(opts Options) *Generator {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &Generator{
		opts: opts,
		fset: token.NewFileSet(),
	}
}

// Generate generates code for the given package patterns.
func (g *Generator) Generate(patterns ...string) error {
	packages, err := g.findPackages(patterns)
	if err != nil {
		return err
	}

	for _, pkg := range packages {
		if err := g.generatePackage(pkg); err != nil {
			return fmt.Errorf("package %s: %w", pkg, err)
		}
	}

	return nil
}

// Clean removes generated files for the given package patterns.
func (g *Generator) Clean(patterns ...string) error {
	packages, err := g.findPackages(patterns)
	if err != nil {
		return err
	}

	for _, pkg := range packages {
		if err := g.cleanPackage(pkg); err != nil {
			return fmt.Errorf("package %s: %w", pkg, err)
		}
	}

	return nil
}

// findPackages resolves package patterns to directory paths.
func (g *Generator) findPackages(patterns []string) ([]string, error) {
	var packages []string

	for _, pattern := range patterns {
		// Handle ./... pattern
		if !strings.HasSuffix(pattern, "/...") && pattern != "..." {
			packages = append(packages, pattern)
			continue
		}

		root := strings.TrimSuffix(strings.TrimSuffix(pattern, "..."), "/")
		if root == "" {
			root = "."
		}

		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return nil
			}
			// Skip hidden directories, vendor and _-prefixed trees
			base := filepath.Base(path)
			if path != root && (strings.HasPrefix(base, ".") || strings.HasPrefix(base, "_") || base == "vendor" || base == "testdata") {
				return filepath.SkipDir
			}

			entries, err := os.ReadDir(path)
			if err != nil {
				return nil
			}
			for _, entry := range entries {
				if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".go") && !strings.HasSuffix(entry.Name(), "_test.go") {
					packages = append(packages, path)
					break
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return packages, nil
}

// generatePackage generates code for a single package.
func (g *Generator) generatePackage(pkgPath string) error {
	// Parse all Go files in the package
	pkgs, err := parser.ParseDir(g.fset, pkgPath, func(info os.FileInfo) bool {
		name := info.Name()
		// Skip test files and generated files
		return !strings.HasSuffix(name, "_test.go") && !strings.HasSuffix(name, "_hx.go")
	}, parser.ParseComments)
	if err != nil {
		return err
	}

	for pkgName, pkg := range pkgs {
		views := g.findViews(pkg)
		if len(views) == 0 {
			continue
		}
		if err := g.generateRegistration(pkgPath, pkgName, views); err != nil {
			return err
		}
	}

	return nil
}

// cleanPackage removes generated files from a package.
func (g *Generator) cleanPackage(pkgPath string) error {
	entries, err := os.ReadDir(pkgPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), "_hx.go") {
			path := filepath.Join(pkgPath, entry.Name())
			fmt.Fprintf(g.opts.Out, "removing %s\n", path)
			if !g.opts.DryRun {
				if err := os.Remove(path); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

// ViewInfo holds information about a discovered view.
type ViewInfo struct {
	SourceFile  string
	TypeName    string // e.g., "UserView"
	Name        string // registered name, TypeName unless overridden
	Constructor string // e.g., "NewUserView"
}

// findViews finds every view type of a package that has a matching
// constructor. Results are sorted by name.
func (g *Generator) findViews(pkg *ast.Package) []*ViewInfo {
	var candidates []*ViewInfo
	constructors := make(map[string]bool)

	for filename, file := range pkg.Files {
		local := hxviewImportName(file)

		for _, decl := range file.Decls {
			if fn, ok := decl.(*ast.FuncDecl); ok {
				if typeName, ok := constructorFor(fn); ok {
					constructors[typeName] = true
				}
				continue
			}

			// Look for type declarations
			genDecl, ok := decl.(*ast.GenDecl)
			if !ok || genDecl.Tok != token.TYPE || local == "" {
				continue
			}

			for _, spec := range genDecl.Specs {
				typeSpec, ok := spec.(*ast.TypeSpec)
				if !ok || typeSpec.TypeParams != nil {
					continue
				}

				structType, ok := typeSpec.Type.(*ast.StructType)
				if !ok || !embedsView(structType, local) {
					continue
				}

				doc := typeSpec.Doc
				if doc == nil && len(genDecl.Specs) == 1 {
					doc = genDecl.Doc
				}
				info := &ViewInfo{
					SourceFile:  filename,
					TypeName:    typeSpec.Name.Name,
					Name:        typeSpec.Name.Name,
					Constructor: "New" + typeSpec.Name.Name,
				}
				if name := directiveName(doc); name != "" {
					info.Name = name
				}
				candidates = append(candidates, info)
			}
		}
	}

	var views []*ViewInfo
	for _, v := range candidates {
		if !constructors[v.TypeName] {
			fmt.Fprintf(g.opts.Out, "skipping %s: no func %s() (*%s, error)\n", v.TypeName, v.Constructor, v.TypeName)
			continue
		}
		views = append(views, v)
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Name < views[j].Name })
	return views
}

// hxviewImportName returns the name the file uses for the hxview package,
// or "" when the file does not import it.
func hxviewImportName(file *ast.File) string {
	for _, imp := range file.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil || path != ImportPath {
			continue
		}
		if imp.Name != nil {
			if imp.Name.Name == "_" || imp.Name.Name == "." {
				return ""
			}
			return imp.Name.Name
		}
		return "hxview"
	}
	return ""
}

// embedsView checks if a struct embeds *hxview.View.
func embedsView(structType *ast.StructType, local string) bool {
	for _, field := range structType.Fields.List {
		// Check for anonymous field (embedding)
		if len(field.Names) != 0 {
			continue
		}

		starExpr, ok := field.Type.(*ast.StarExpr)
		if !ok {
			continue
		}

		sel, ok := starExpr.X.(*ast.SelectorExpr)
		if !ok {
			continue
		}
		if ident, ok := sel.X.(*ast.Ident); ok && ident.Name == local && sel.Sel.Name == "View" {
			return true
		}
	}
	return false
}

// constructorFor reports the type built by a func NewT() (*T, error).
func constructorFor(fn *ast.FuncDecl) (string, bool) {
	if fn.Recv != nil || fn.Type.TypeParams != nil || !strings.HasPrefix(fn.Name.Name, "New") {
		return "", false
	}
	if fn.Type.Params != nil && len(fn.Type.Params.List) > 0 {
		return "", false
	}
	results := fn.Type.Results
	if results == nil || len(results.List) != 2 {
		return "", false
	}
	for _, r := range results.List {
		if len(r.Names) > 1 {
			return "", false
		}
	}

	star, ok := results.List[0].Type.(*ast.StarExpr)
	if !ok {
		return "", false
	}
	typeIdent, ok := star.X.(*ast.Ident)
	if !ok || fn.Name.Name != "New"+typeIdent.Name {
		return "", false
	}
	errIdent, ok := results.List[1].Type.(*ast.Ident)
	if !ok || errIdent.Name != "error" {
		return "", false
	}
	return typeIdent.Name, true
}

// directiveName extracts the //hxview:name override from a doc comment.
func directiveName(doc *ast.CommentGroup) string {
	if doc == nil {
		return ""
	}
	for _, c := range doc.List {
		text := strings.TrimSpace(strings.TrimPrefix(c.Text, "//"))
		if rest, ok := strings.CutPrefix(text, nameDirective); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}
