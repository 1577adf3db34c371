// Package semantic implements pass 1: it resolves declarations into a
// lexically scoped symbol table, assigns storage offsets, type-checks
// every expression and statement, and decorates the AST in place.
// Analysis fails fast on the first diagnostic; mini-C has no error
// recovery, so there is no point collecting more than one.
package semantic

import (
	"github.com/minic-lang/minicc/internal/ast"
	"github.com/minic-lang/minicc/internal/symtab"
)

// Analyzer runs pass 1 over a single compilation unit.
type Analyzer struct {
	env *symtab.Env
}

// NewAnalyzer returns a fresh analyzer with its own symbol table.
func NewAnalyzer() *Analyzer {
	return &Analyzer{env: symtab.NewEnv()}
}

// Analyze runs analyse_passe_1 over root, a PROGRAM node whose two
// children are the global declarations and the main function.
func (a *Analyzer) Analyze(root *ast.Node) error {
	a.env.PushGlobal()
	defer a.env.Pop()

	if err := a.declsList(root.Opr[0], true); err != nil {
		return err
	}
	return a.mainDecl(root.Opr[1])
}

// mainDecl processes the sole function in the program: it must be
// named "main" and return void (rule 1.4).
func (a *Analyzer) mainDecl(fn *ast.Node) error {
	a.env.ResetOffset()

	typ := fn.Opr[0]
	name := fn.Opr[1]
	block := fn.Opr[2]

	if name.Ident != "main" {
		return errorf(name.Lineno, "1.4", "the main function must be named 'main'")
	}
	if typ.Type != ast.VOID {
		return errorf(typ.Lineno, "1.4", "the main function must return 'void'")
	}

	if err := a.blockDecl(block); err != nil {
		return err
	}
	fn.Offset = a.env.Offset()
	return nil
}

// blockDecl opens a scope, processes the block's local declarations
// and then its statements, and closes the scope.
func (a *Analyzer) blockDecl(block *ast.Node) error {
	if block == nil {
		return nil
	}
	a.env.Push()
	defer a.env.Pop()

	if err := a.declsList(block.Opr[0], false); err != nil {
		return err
	}
	return a.stmtProcessing(block.Opr[1])
}

// declsList walks a DECLS/LIST spine, dispatching each DECLS group to
// declList with its declared type.
func (a *Analyzer) declsList(node *ast.Node, isGlobal bool) error {
	if node == nil {
		return nil
	}
	switch node.Nature {
	case ast.LIST:
		if err := a.declsList(node.Opr[0], isGlobal); err != nil {
			return err
		}
		return a.declsList(node.Opr[1], isGlobal)
	case ast.DECLS:
		typ := node.Opr[0]
		return a.declList(node.Opr[1], typ.Type, isGlobal)
	}
	return nil
}

// declList processes one or more DECL nodes sharing a declared type.
func (a *Analyzer) declList(node *ast.Node, typ ast.Type, isGlobal bool) error {
	if node == nil {
		return nil
	}
	switch node.Nature {
	case ast.LIST:
		if err := a.declList(node.Opr[0], typ, isGlobal); err != nil {
			return err
		}
		return a.declList(node.Opr[1], typ, isGlobal)

	case ast.DECL:
		ident := node.Opr[0]

		if typ == ast.VOID {
			return errorf(ident.Lineno, "1.8", "variable '%s' cannot be of type void", ident.Ident)
		}

		offset, ok := a.env.Add(ident.Ident, ident)
		if !ok {
			return errorf(ident.Lineno, "1.11", "variable '%s' already declared", ident.Ident)
		}

		if node.Nops == 2 {
			init := node.Opr[1]
			if isGlobal {
				if init.Nature != ast.INTVAL && init.Nature != ast.BOOLVAL {
					return errorf(init.Lineno, "1.12", "expressions are not allowed in initialization of global variable '%s'", ident.Ident)
				}
				if init.Nature == ast.INTVAL {
					init.Type = ast.INT
				} else {
					init.Type = ast.BOOL
				}
				if init.Type != typ {
					return errorf(init.Lineno, "1.12", "type mismatch in initialization of variable '%s'", ident.Ident)
				}
			} else {
				initType, err := a.exprType(init)
				if err != nil {
					return err
				}
				if initType != typ {
					return errorf(init.Lineno, "1.13", "type mismatch in initialization of variable '%s'", ident.Ident)
				}
			}
		}

		ident.Type = typ
		ident.GlobalDecl = isGlobal
		ident.Offset = offset
		return nil
	}
	return nil
}

// stmtProcessing walks a LIST spine of statements, dispatching each
// leaf to the right statement-kind handler.
func (a *Analyzer) stmtProcessing(node *ast.Node) error {
	if node == nil {
		return nil
	}
	switch node.Nature {
	case ast.LIST:
		if err := a.stmtProcessing(node.Opr[0]); err != nil {
			return err
		}
		return a.stmtProcessing(node.Opr[1])
	case ast.BLOCK:
		return a.blockDecl(node)
	case ast.IF:
		return a.ifProcessing(node)
	case ast.WHILE:
		return a.whileProcessing(node)
	case ast.FOR:
		return a.forProcessing(node)
	case ast.DOWHILE:
		return a.doWhileProcessing(node)
	case ast.PRINT:
		return a.printProcessing(node)
	default:
		_, err := a.exprType(node)
		return err
	}
}

func (a *Analyzer) ifProcessing(node *ast.Node) error {
	cond := node.Opr[0]
	t, err := a.exprType(cond)
	if err != nil {
		return err
	}
	if t != ast.BOOL {
		return errorf(cond.Lineno, "1.18", "condition of 'if' must be bool")
	}
	if err := a.stmtProcessing(node.Opr[1]); err != nil {
		return err
	}
	if node.Nops == 3 {
		return a.stmtProcessing(node.Opr[2])
	}
	return nil
}

func (a *Analyzer) whileProcessing(node *ast.Node) error {
	cond := node.Opr[0]
	t, err := a.exprType(cond)
	if err != nil {
		return err
	}
	if t != ast.BOOL {
		return errorf(cond.Lineno, "1.20", "condition of 'while' must be bool")
	}
	return a.stmtProcessing(node.Opr[1])
}

// forProcessing handles the 4-operand FOR node; init, cond and step
// may each be nil (e.g. empty for(;;)) but body may not.
func (a *Analyzer) forProcessing(node *ast.Node) error {
	init, cond, step, body := node.Opr[0], node.Opr[1], node.Opr[2], node.Opr[3]

	if init != nil {
		if _, err := a.exprType(init); err != nil {
			return err
		}
	}
	if cond != nil {
		t, err := a.exprType(cond)
		if err != nil {
			return err
		}
		if t != ast.BOOL {
			return errorf(cond.Lineno, "1.21", "condition of 'for' must be bool")
		}
	}
	if step != nil {
		if _, err := a.exprType(step); err != nil {
			return err
		}
	}
	return a.stmtProcessing(body)
}

// doWhileProcessing: the condition is a single expression, not a list.
func (a *Analyzer) doWhileProcessing(node *ast.Node) error {
	if err := a.stmtProcessing(node.Opr[0]); err != nil {
		return err
	}
	cond := node.Opr[1]
	t, err := a.exprType(cond)
	if err != nil {
		return err
	}
	if t != ast.BOOL {
		return errorf(cond.Lineno, "1.22", "condition of 'do-while' must be bool")
	}
	return nil
}

// printProcessing walks every print argument as an expression and
// type-checks it during pass 1, rather than deferring to codegen.
func (a *Analyzer) printProcessing(node *ast.Node) error {
	return a.printArgs(node.Opr[0])
}

func (a *Analyzer) printArgs(node *ast.Node) error {
	if node == nil {
		return nil
	}
	if node.Nature == ast.LIST {
		if err := a.printArgs(node.Opr[0]); err != nil {
			return err
		}
		return a.printArgs(node.Opr[1])
	}
	if node.Nature == ast.STRINGVAL {
		// String literals are only ever valid as print arguments, never
		// as general expression operands, so they are exempt from the
		// "every expression node has type INT or BOOL" invariant.
		return nil
	}
	_, err := a.exprType(node)
	return err
}

// exprType type-checks expr against the operator typing tables,
// annotating expr.Type (and, for IDENT, expr.DeclNode / expr.Offset /
// expr.GlobalDecl) as it goes.
func (a *Analyzer) exprType(expr *ast.Node) (ast.Type, error) {
	switch expr.Nature {
	case ast.INTVAL:
		expr.Type = ast.INT
		return ast.INT, nil

	case ast.BOOLVAL:
		expr.Type = ast.BOOL
		return ast.BOOL, nil

	case ast.IDENT:
		decl := a.env.Lookup(expr.Ident)
		if decl == nil {
			return ast.UNSET, errorf(expr.Lineno, "1.61", "use of undeclared identifier '%s'", expr.Ident)
		}
		expr.DeclNode = decl
		expr.Type = decl.Type
		expr.Offset = decl.Offset
		expr.GlobalDecl = decl.GlobalDecl
		return expr.Type, nil

	case ast.AFFECT:
		lhs, rhs := expr.Opr[0], expr.Opr[1]
		if lhs.Nature != ast.IDENT {
			return ast.UNSET, errorf(expr.Lineno, "1.32", "left-hand side of an assignment must be an identifier")
		}
		lt, err := a.exprType(lhs)
		if err != nil {
			return ast.UNSET, err
		}
		rt, err := a.exprType(rhs)
		if err != nil {
			return ast.UNSET, err
		}
		if rt != lt {
			return ast.UNSET, errorf(expr.Lineno, "1.32", "cannot assign %s to %s variable '%s'", rt, lt, lhs.Ident)
		}
		expr.Type = lt
		return lt, nil

	case ast.PLUS, ast.MINUS, ast.MUL, ast.DIV, ast.MOD,
		ast.BAND, ast.BOR, ast.BXOR, ast.SLL, ast.SRA, ast.SRL:
		return a.binary(expr, ast.INT, ast.INT, ast.INT, "1.30")

	case ast.LT, ast.GT, ast.LE, ast.GE:
		return a.binary(expr, ast.INT, ast.INT, ast.BOOL, "1.30")

	case ast.AND, ast.OR:
		return a.binary(expr, ast.BOOL, ast.BOOL, ast.BOOL, "1.30")

	case ast.EQ, ast.NE:
		return a.equality(expr)

	case ast.UMINUS, ast.BNOT:
		return a.unary(expr, ast.INT, ast.INT, "1.31")

	case ast.NOT:
		return a.unary(expr, ast.BOOL, ast.BOOL, "1.31")

	default:
		return ast.UNSET, errorf(expr.Lineno, "1.30", "unexpected expression of nature %s", expr.Nature)
	}
}

func (a *Analyzer) binary(expr *ast.Node, leftWant, rightWant, result ast.Type, rule string) (ast.Type, error) {
	lt, err := a.exprType(expr.Opr[0])
	if err != nil {
		return ast.UNSET, err
	}
	rt, err := a.exprType(expr.Opr[1])
	if err != nil {
		return ast.UNSET, err
	}
	if lt != leftWant || rt != rightWant {
		return ast.UNSET, errorf(expr.Lineno, rule, "operator %s requires %s operands", expr.Nature, leftWant)
	}
	expr.Type = result
	return result, nil
}

// equality requires both operands to share a type (INT with INT, or
// BOOL with BOOL) and always yields BOOL.
func (a *Analyzer) equality(expr *ast.Node) (ast.Type, error) {
	lt, err := a.exprType(expr.Opr[0])
	if err != nil {
		return ast.UNSET, err
	}
	rt, err := a.exprType(expr.Opr[1])
	if err != nil {
		return ast.UNSET, err
	}
	if lt != rt {
		return ast.UNSET, errorf(expr.Lineno, "1.30", "operator %s requires operands of the same type", expr.Nature)
	}
	expr.Type = ast.BOOL
	return ast.BOOL, nil
}

func (a *Analyzer) unary(expr *ast.Node, want, result ast.Type, rule string) (ast.Type, error) {
	t, err := a.exprType(expr.Opr[0])
	if err != nil {
		return ast.UNSET, err
	}
	if t != want {
		return ast.UNSET, errorf(expr.Lineno, rule, "operator %s requires a %s operand", expr.Nature, want)
	}
	expr.Type = result
	return result, nil
}
