// Command minicc compiles a mini-C source file to MIPS32 assembly for
// the MARS/SPIM simulator.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/minic-lang/minicc/internal/ast"
	"github.com/minic-lang/minicc/internal/codegen"
	"github.com/minic-lang/minicc/internal/emitter"
	"github.com/minic-lang/minicc/internal/parser"
	"github.com/minic-lang/minicc/internal/semantic"
	"github.com/minic-lang/minicc/internal/version"
	"github.com/spf13/cobra"
)

var (
	outputFile   string
	maxRegisters int
	dumpAST      bool
	showVersion  bool
)

var rootCmd = &cobra.Command{
	Use:   "minicc [source file]",
	Short: "minicc - a mini-C to MIPS32 compiler " + version.GetVersion(),
	Long: `minicc compiles a small C-like language to MIPS32 assembly
text suitable for the MARS/SPIM simulator.

Language summary:
  int, bool variables and globals    if / else, while, for, do-while
  arithmetic, relational, logical    print(expr, "literal", ...)
  and bitwise operators

EXAMPLES:
  minicc hello.mc                    compile to hello.s
  minicc hello.mc -o out.s           choose the output path
  minicc hello.mc -N 4               restrict the register window to 4
  minicc hello.mc --dump-ast         print the parsed tree and stop`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Println(version.GetFullVersion())
			return nil
		}
		return compile(args[0])
	},
}

func init() {
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output assembly file (default: input with a .s extension)")
	rootCmd.Flags().IntVarP(&maxRegisters, "max-registers", "N", emitter.MaxTempRegisters, "size of the allocator's temporary register window")
	rootCmd.Flags().BoolVar(&dumpAST, "dump-ast", false, "print the parsed AST as JSON and stop before semantic analysis")
	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "show version information")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func compile(sourceFile string) error {
	src, err := os.ReadFile(sourceFile)
	if err != nil {
		return fmt.Errorf("reading %s: %w", sourceFile, err)
	}

	root, err := parser.Parse(string(src))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	if dumpAST {
		return dumpTree(root)
	}

	analyzer := semantic.NewAnalyzer()
	if err := analyzer.Analyze(root); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	emit := emitter.NewMipsWriter()
	gen := codegen.NewGenerator(emit, maxRegisters)
	if err := gen.Generate(root); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	if outputFile == "" {
		base := filepath.Base(sourceFile)
		ext := filepath.Ext(base)
		outputFile = base[:len(base)-len(ext)] + ".s"
	}
	if err := os.WriteFile(outputFile, []byte(emit.String()), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", outputFile, err)
	}
	return nil
}

// dumpTree prints the parsed (not yet annotated) tree as indented JSON,
// mirroring Node's exported fields directly rather than introducing a
// separate serialization type.
func dumpTree(root *ast.Node) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(treeToMap(root))
}

func treeToMap(n *ast.Node) map[string]any {
	if n == nil {
		return nil
	}
	m := map[string]any{
		"nature": n.Nature.String(),
		"line":   n.Lineno,
	}
	switch n.Nature {
	case ast.INTVAL, ast.BOOLVAL:
		m["value"] = n.Value
	case ast.STRINGVAL:
		m["str"] = n.Str
	case ast.IDENT:
		m["ident"] = n.Ident
	case ast.TYPETOKEN:
		m["type"] = n.Type.String()
	}
	var ops []map[string]any
	for i := 0; i < n.Nops; i++ {
		if child := treeToMap(n.Opr[i]); child != nil {
			ops = append(ops, child)
		}
	}
	if len(ops) > 0 {
		m["children"] = ops
	}
	return m
}
