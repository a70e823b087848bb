// aggregate_write_audit reports where placement state is written. Every
// write to candidates, positions or allocations is expected to go through
// the PlacementAggregate; a direct repo write from the service or engine
// layer shows up as a residual call site.
//
//	go run ./scripts/aggregate_write_audit.go [-strict] [root]
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var auditedDirs = []string{
	filepath.Join("internal", "services"),
	filepath.Join("internal", "modules", "allocation"),
}

type repoField struct {
	Struct   string `json:"struct"`
	Name     string `json:"name"`
	RepoType string `json:"repo_type"`
}

type methodStats struct {
	Package             string   `json:"package"`
	StructName          string   `json:"struct_name"`
	Method              string   `json:"method"`
	File                string   `json:"file"`
	Line                int      `json:"line"`
	RepoWriteCalls      int      `json:"repo_write_calls"`
	RepoWritesObserved  []string `json:"repo_writes_observed"`
	AggregateWriteCalls int      `json:"aggregate_write_calls"`
	AggregateWrites     []string `json:"aggregate_writes_observed"`
}

type auditReport struct {
	RepoWriteCallsites      int           `json:"repo_write_callsites"`
	AggregateWriteCallsites int           `json:"aggregate_write_callsites"`
	ResidualMethods         []methodStats `json:"residual_methods"`
	AggregateMethods        []methodStats `json:"aggregate_methods"`
	RepoFieldInventory      []repoField   `json:"repo_field_inventory"`
}

// structFields maps field name to the kind of dependency it holds.
type structFields struct {
	repos      map[string]string
	aggregates map[string]string
}

var repoWriteMethods = map[string]bool{
	"Create":         true,
	"SetStatus":      true,
	"UpdateStatusIf": true,
	"LockByID":       true,
	"LockByIDs":      true,
}

var aggregateWriteMethods = map[string]bool{
	"CommitBatch":      true,
	"ReleaseSlot":      true,
	"AcceptAllocation": true,
}

func main() {
	strict := flag.Bool("strict", false, "exit non-zero when a residual repo write is found")
	flag.Parse()
	root := "."
	if flag.NArg() > 0 {
		root = flag.Arg(0)
	}

	fset := token.NewFileSet()
	var (
		methods   []methodStats
		inventory []repoField
	)
	for _, dir := range auditedDirs {
		pkgs, err := parser.ParseDir(fset, filepath.Join(root, dir), func(fi os.FileInfo) bool {
			name := fi.Name()
			return strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go")
		}, 0)
		if err != nil {
			exitf("parse %s: %v", dir, err)
		}
		for pkgName, pkg := range pkgs {
			fields := map[string]structFields{}
			for _, f := range pkg.Files {
				collectStructFields(f, fields)
			}
			for structName, sf := range fields {
				for name, typ := range sf.repos {
					inventory = append(inventory, repoField{Struct: pkgName + "." + structName, Name: name, RepoType: typ})
				}
			}
			for path, f := range pkg.Files {
				rel, err := filepath.Rel(root, path)
				if err != nil {
					rel = path
				}
				methods = append(methods, collectMethodStats(fset, f, pkgName, filepath.ToSlash(rel), fields)...)
			}
		}
	}

	report := buildReport(methods, inventory)
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		exitf("marshal report: %v", err)
	}
	fmt.Println(string(out))
	if *strict && report.RepoWriteCallsites > 0 {
		os.Exit(1)
	}
}

func collectStructFields(file *ast.File, out map[string]structFields) {
	for _, decl := range file.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			st, ok := ts.Type.(*ast.StructType)
			if !ok || st.Fields == nil {
				continue
			}
			sf := structFields{repos: map[string]string{}, aggregates: map[string]string{}}
			for _, field := range st.Fields.List {
				sel, ok := field.Type.(*ast.SelectorExpr)
				if !ok {
					continue
				}
				pkgIdent, ok := sel.X.(*ast.Ident)
				if !ok {
					continue
				}
				typ := sel.Sel.Name
				for _, n := range field.Names {
					switch {
					case pkgIdent.Name == "repos" && (typ == "Placement" || strings.HasSuffix(typ, "Repo")):
						sf.repos[n.Name] = typ
					case pkgIdent.Name == "domainagg" && strings.HasSuffix(typ, "Aggregate"):
						sf.aggregates[n.Name] = typ
					}
				}
			}
			if len(sf.repos) > 0 || len(sf.aggregates) > 0 {
				out[ts.Name.Name] = sf
			}
		}
	}
}

func collectMethodStats(fset *token.FileSet, file *ast.File, pkgName, relFile string, fields map[string]structFields) []methodStats {
	var out []methodStats
	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Recv == nil || fd.Body == nil || len(fd.Recv.List) == 0 {
			continue
		}
		recvName, recvType := recvInfo(fd.Recv.List[0])
		sf, ok := fields[recvType]
		if !ok || recvName == "" {
			continue
		}

		repoWrites := map[string]bool{}
		aggWrites := map[string]bool{}
		repoCalls, aggCalls := 0, 0
		ast.Inspect(fd.Body, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			chain := selectorChain(call.Fun)
			// recv.field[.sub].Method
			if len(chain) < 3 || chain[0] != recvName {
				return true
			}
			field, method := chain[1], chain[len(chain)-1]
			if _, ok := sf.repos[field]; ok && repoWriteMethods[method] {
				repoCalls++
				repoWrites[strings.Join(chain[1:], ".")] = true
			}
			if _, ok := sf.aggregates[field]; ok && len(chain) == 3 && aggregateWriteMethods[method] {
				aggCalls++
				aggWrites[method] = true
			}
			return true
		})
		if repoCalls == 0 && aggCalls == 0 {
			continue
		}
		out = append(out, methodStats{
			Package:             pkgName,
			StructName:          recvType,
			Method:              fd.Name.Name,
			File:                relFile,
			Line:                fset.Position(fd.Pos()).Line,
			RepoWriteCalls:      repoCalls,
			RepoWritesObserved:  sortedKeys(repoWrites),
			AggregateWriteCalls: aggCalls,
			AggregateWrites:     sortedKeys(aggWrites),
		})
	}
	return out
}

func buildReport(methods []methodStats, inventory []repoField) auditReport {
	sort.Slice(methods, func(i, j int) bool {
		if methods[i].File == methods[j].File {
			return methods[i].Line < methods[j].Line
		}
		return methods[i].File < methods[j].File
	})
	sort.Slice(inventory, func(i, j int) bool {
		if inventory[i].Struct == inventory[j].Struct {
			return inventory[i].Name < inventory[j].Name
		}
		return inventory[i].Struct < inventory[j].Struct
	})

	report := auditReport{RepoFieldInventory: inventory}
	for _, m := range methods {
		if m.RepoWriteCalls > 0 {
			report.RepoWriteCallsites += m.RepoWriteCalls
			report.ResidualMethods = append(report.ResidualMethods, m)
		}
		if m.AggregateWriteCalls > 0 {
			report.AggregateWriteCallsites += m.AggregateWriteCalls
			report.AggregateMethods = append(report.AggregateMethods, m)
		}
	}
	return report
}

// selectorChain flattens a.b.c.D into [a b c D]. Anything other than a
// plain identifier at the root yields nil.
func selectorChain(expr ast.Expr) []string {
	var parts []string
	for {
		switch e := expr.(type) {
		case *ast.SelectorExpr:
			parts = append(parts, e.Sel.Name)
			expr = e.X
		case *ast.Ident:
			parts = append(parts, e.Name)
			for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
				parts[i], parts[j] = parts[j], parts[i]
			}
			return parts
		default:
			return nil
		}
	}
}

func recvInfo(field *ast.Field) (string, string) {
	if field == nil || len(field.Names) == 0 {
		return "", ""
	}
	recvName := field.Names[0].Name
	switch t := field.Type.(type) {
	case *ast.StarExpr:
		if id, ok := t.X.(*ast.Ident); ok {
			return recvName, id.Name
		}
	case *ast.Ident:
		return recvName, t.Name
	}
	return "", ""
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
