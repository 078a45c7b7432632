// Package gen writes Go entity types for the entities of a registry, so
// that definitions loaded from YAML can be turned into tagged structs.
package gen

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/dave/jennifer/jen"
	"github.com/go-openapi/inflect"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/imports"

	"github.com/syssam/tether/schema"
	"github.com/syssam/tether/schema/edge"
	"github.com/syssam/tether/schema/field"
)

const (
	schemaPkg  = "github.com/syssam/tether/schema"
	decimalPkg = "github.com/shopspring/decimal"
	header     = "Code generated by tether. DO NOT EDIT."
)

// Config configures a generation run.
type Config struct {
	// Package is the name of the generated package.
	Package string
	// OutDir is the directory the files are written to.
	OutDir string
	// Workers bounds the files rendered concurrently. It defaults to
	// GOMAXPROCS.
	Workers int
}

// Generate writes one file per entity and an entities.go file listing
// them, and returns the written paths, sorted.
func Generate(ctx context.Context, entities []*schema.Entity, cfg Config) ([]string, error) {
	if cfg.Package == "" {
		return nil, fmt.Errorf("gen: missing package name")
	}
	if len(entities) == 0 {
		return nil, fmt.Errorf("gen: no entities")
	}
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("gen: create output directory: %w", err)
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	files := make(map[string]func() (*jen.File, error), len(entities)+1)
	for _, e := range entities {
		files[strings.ToLower(e.Name)+".go"] = func() (*jen.File, error) {
			return entityFile(cfg.Package, e)
		}
	}
	files["entities.go"] = func() (*jen.File, error) {
		return listFile(cfg.Package, entities), nil
	}

	paths := make([]string, 0, len(files))
	for name := range files {
		paths = append(paths, filepath.Join(cfg.OutDir, name))
	}
	sort.Strings(paths)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for name, render := range files {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := render()
			if err != nil {
				return fmt.Errorf("gen: %s: %w", name, err)
			}
			return write(filepath.Join(cfg.OutDir, name), f)
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

// write renders f and formats it with goimports before writing it.
func write(path string, f *jen.File) error {
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return fmt.Errorf("gen: render %s: %w", filepath.Base(path), err)
	}
	out, err := imports.Process(path, buf.Bytes(), nil)
	if err != nil {
		return fmt.Errorf("gen: format %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("gen: write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func entityFile(pkg string, e *schema.Entity) (*jen.File, error) {
	f := jen.NewFile(pkg)
	f.HeaderComment(header)
	name := TypeName(e.Name)

	var fields []jen.Code
	fields = append(fields, jen.Qual(schemaPkg, "Model").Tag(map[string]string{"table": e.Table}))
	for _, c := range e.Columns {
		typ, err := goType(c.Info)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.Name, err)
		}
		goName := FieldName(c.Field)
		fields = append(fields, jen.Id(goName).Add(typ).Tag(map[string]string{"tether": columnTag(c, goName)}))
	}
	for _, rel := range e.Relations {
		target, err := rel.Target()
		if err != nil {
			return nil, fmt.Errorf("relation %s: %w", rel.Field, err)
		}
		goName := FieldName(rel.Field)
		typ := jen.Op("*").Id(TypeName(target.Name))
		if rel.Collection {
			typ = jen.Index().Op("*").Id(TypeName(target.Name))
		}
		fields = append(fields, jen.Id(goName).Add(typ).Tag(map[string]string{"tether": relationTag(rel, goName)}))
	}

	f.Commentf("%s maps the %s table.", name, e.Table)
	f.Type().Id(name).Struct(fields...)
	return f, nil
}

func listFile(pkg string, entities []*schema.Entity) *jen.File {
	f := jen.NewFile(pkg)
	f.HeaderComment(header)
	names := make([]string, len(entities))
	for i, e := range entities {
		names[i] = TypeName(e.Name)
	}
	sort.Strings(names)
	f.Comment("Entities returns a zero record of every generated entity.")
	f.Func().Id("Entities").Params().Index().Interface().Block(
		jen.Return(jen.Index().Interface().ValuesFunc(func(g *jen.Group) {
			for _, n := range names {
				g.Op("&").Id(n).Values()
			}
		})),
	)
	return f
}

func goType(info field.Info) (jen.Code, error) {
	switch info.Type {
	case field.TypeBool:
		return jen.Bool(), nil
	case field.TypeInt16:
		return jen.Int16(), nil
	case field.TypeInt32:
		return jen.Int32(), nil
	case field.TypeInt64:
		return jen.Int64(), nil
	case field.TypeFloat64:
		return jen.Float64(), nil
	case field.TypeString:
		return jen.String(), nil
	case field.TypeDecimal:
		return jen.Qual(decimalPkg, "Decimal"), nil
	case field.TypeTime:
		return jen.Qual("time", "Time"), nil
	}
	return nil, fmt.Errorf("unsupported type %s", info)
}

func columnTag(c *schema.Column, goName string) string {
	opts := []string{c.Name}
	if c.PK {
		opts = append(opts, "pk")
	}
	if c.Info.Subkind != field.SubkindNone {
		opts = append(opts, "temporal="+c.Info.Subkind.String())
	}
	if schema.PropertyName(goName) != c.Field {
		opts = append(opts, "name="+c.Field)
	}
	return strings.Join(opts, ",")
}

func relationTag(rel *schema.Relation, goName string) string {
	var opts []string
	switch {
	case rel.Bridge != nil:
		b := rel.Bridge
		opts = append(opts, b.Host.Column, "bridge="+b.Table, "from="+b.Host.References, "to="+b.Target.Column, "references="+b.Target.References)
	case rel.Join != nil:
		opts = append(opts, rel.Join.Column, "references="+rel.Join.References)
	}
	if rel.Kind != edge.Default {
		opts = append(opts, "kind="+rel.Kind.String())
	}
	if schema.PropertyName(goName) != rel.Field {
		opts = append(opts, "name="+rel.Field)
	}
	return strings.Join(opts, ",")
}

// TypeName returns the Go type name of an entity.
func TypeName(entity string) string {
	return initialisms(inflect.Typeify(entity))
}

// FieldName returns the exported Go field name of a property:
// studentNumber becomes StudentNumber and id becomes ID.
func FieldName(property string) string {
	return initialisms(inflect.Camelize(property))
}

// initialisms upper-cases a trailing "Id", as in ID or FacultyID.
func initialisms(s string) string {
	if strings.HasSuffix(s, "Id") {
		return strings.TrimSuffix(s, "Id") + "ID"
	}
	return s
}
