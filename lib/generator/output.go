package generator

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"text/template"
)

// OutputFile is the name of the file written into each package.
const OutputFile = "views_hx.go"

// generateRegistration writes the registration file for a package.
func (g *Generator) generateRegistration(pkgPath, pkgName string, views []*ViewInfo) error {
	outputFile := filepath.Join(pkgPath, OutputFile)

	fmt.Fprintf(g.opts.Out, "generating %s (%d views)\n", outputFile, len(views))

	if g.opts.DryRun {
		return nil
	}

	code, err := renderRegistration(pkgName, views)
	if err != nil {
		return fmt.Errorf("render template: %w", err)
	}

	formatted, err := format.Source(code)
	if err != nil {
		// Write unformatted for debugging
		if writeErr := os.WriteFile(outputFile+".unformatted", code, 0644); writeErr == nil {
			fmt.Fprintf(g.opts.Out, "  wrote unformatted code to %s.unformatted for debugging\n", outputFile)
		}
		return fmt.Errorf("format source: %w", err)
	}

	return os.WriteFile(outputFile, formatted, 0644)
}

// renderRegistration renders the generated code template.
func renderRegistration(pkgName string, views []*ViewInfo) ([]byte, error) {
	tmpl, err := template.New("hx").Parse(registrationTemplate)
	if err != nil {
		return nil, err
	}

	data := struct {
		Package    string
		ImportPath string
		Views      []*ViewInfo
	}{
		Package:    pkgName,
		ImportPath: ImportPath,
		Views:      views,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

const registrationTemplate = `// Code generated by hxview generate. DO NOT EDIT.

package {{.Package}}

import hxview "{{.ImportPath}}"

// RegisterViews adds every view of this package to reg.
func RegisterViews(reg *hxview.Registry) {
{{- range .Views}}
	hxview.Register(reg, {{printf "%q" .Name}}, {{.Constructor}})
{{- end}}
}

// ViewNames lists the names RegisterViews registers.
var ViewNames = []string{
{{- range .Views}}
	{{printf "%q" .Name}},
{{- end}}
}
`
