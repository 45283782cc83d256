package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// p builds a path from strings (fields) and ints (indexes).
func p(segs ...any) Path {
	out := Path{}
	for _, s := range segs {
		switch v := s.(type) {
		case string:
			out = append(out, Field(v))
		case int:
			out = append(out, Index(v))
		}
	}
	return out
}

type treeBuilder struct {
	f    *Forest
	lang Language
	file string
	root *Node
}

func newTree(lang Language) *treeBuilder {
	f := NewForest()
	return &treeBuilder{f: f, lang: lang, file: "lib.rs", root: f.NewRoot(lang, "lib.rs")}
}

func (b *treeBuilder) add(parent *Node, ident string, path Path, meta map[string]any) *Node {
	n := b.f.NewNode(b.lang, b.file, path)
	n.Identifier = ident
	n.Span = &SourceSpan{File: b.file, Line: 1, StartColumn: 1, EndColumn: 1 + len(ident)}
	for k, v := range meta {
		n.Metadata[k] = v
	}
	parent.AddChild(n)
	return n
}

func idents(l NodeList) []string {
	out := make([]string, len(l))
	for i, n := range l {
		out[i] = n.Identifier
	}
	return out
}

func TestPath_StringAndKey(t *testing.T) {
	assert.Equal(t, "[0].fn.stmts[1].let.pat", p(0, "fn", "stmts", 1, "let", "pat").String())
	assert.Equal(t, "", Path{}.String())

	dotted := Path{Field("a.b")}
	nested := Path{Field("a"), Field("b")}
	assert.Equal(t, dotted.String(), nested.String(), "display form is ambiguous")
	assert.NotEqual(t, dotted.Key(), nested.Key(), "lookup key must not be")
	assert.NotEqual(t, p("a", 1).Key(), p("a", "1").Key())
}

func TestPath_Relations(t *testing.T) {
	full := p(0, "fn", "cond", "binary", "left")
	assert.True(t, full.HasPrefix(p(0, "fn")))
	assert.True(t, full.HasPrefix(Path{}))
	assert.False(t, p(0).HasPrefix(full))
	assert.True(t, full.EndsWith("left"))
	assert.Equal(t, []int{2}, full.FieldRuns("cond", "binary"))
	assert.Nil(t, full.FieldRuns())

	appended := full.Append(Field("x"))
	assert.Len(t, full, 5, "Append must not alias the receiver")
	assert.Len(t, appended, 6)
}

func TestFindByParent(t *testing.T) {
	b := newTree(Rust)
	fn := b.add(b.root, "withdraw", p(0, "fn"), nil)
	b.add(fn, "amount", p(0, "fn", "inputs", 0), nil)
	ctx := b.add(fn, "ctx", p(0, "fn", "inputs", 1), nil)
	b.add(ctx, "accounts", p(0, "fn", "inputs", 1, "x"), nil)
	other := b.add(b.root, "deposit", p(1, "fn"), nil)
	b.add(other, "amount", p(1, "fn", "inputs", 0), nil)

	got := b.root.FindByParent("withdraw")
	assert.Equal(t, []string{"amount", "ctx"}, idents(got))

	got = b.root.FindByParent("ctx")
	assert.Equal(t, []string{"accounts"}, idents(got))

	assert.Empty(t, b.root.FindByParent("missing"))
}

func TestFindByNames_PreOrderWithoutDedup(t *testing.T) {
	b := newTree(Rust)
	a := b.add(b.root, "x", p(0), nil)
	b.add(a, "y", p(0, "a"), nil)
	b.add(a, "x", p(0, "b"), nil)
	b.add(b.root, "y", p(1), nil)

	got := b.root.FindByNames("x", "y")
	require.Len(t, got, 4)
	assert.Equal(t, []string{"x", "y", "x", "y"}, idents(got))
	assert.Equal(t, p(0, "a"), got[1].Path)
}

func TestFindChainedCalls(t *testing.T) {
	b := newTree(Rust)
	tokens := b.add(b.root, "account", p(0, "attrs"), nil)
	for i, name := range []string{"a", "b", "c", "x", "a", "b", "c"} {
		b.add(tokens, name, p(0, "attrs", "tokens", i), nil)
	}
	broken := b.add(b.root, "other", p(1), nil)
	for i, name := range []string{"a", "b", "x", "c"} {
		b.add(broken, name, p(1, "tokens", i), nil)
	}

	got := b.root.FindChainedCalls("a", "b", "c")
	require.Len(t, got, 2)
	for _, run := range got {
		assert.Equal(t, []string{"a", "b", "c"}, idents(run))
		assert.Same(t, tokens, run[0].Parent)
	}

	assert.Empty(t, broken.FindChainedCalls("a", "b", "c"))
	assert.Empty(t, b.root.FindChainedCalls())
}

func TestFindByAccessPath(t *testing.T) {
	b := newTree(Rust)
	fn := b.add(b.root, "f", p(0, "fn"), nil)
	cond := b.add(fn, "a", p(0, "fn", "cond", "binary", "left"), nil)
	b.add(cond, "b", p(0, "fn", "cond", "binary", "right"), nil)

	got := b.root.FindByAccessPath(cond.Path.String(), "binary")
	assert.Equal(t, []string{"a", "b"}, idents(got))
	assert.Empty(t, b.root.FindByAccessPath(cond.Path.String(), "nope"))

	for _, keyword := range []string{"nope", ""} {
		t.Run("full path when keyword is "+keyword, func(t *testing.T) {
			got := b.root.FindByAccessPath(fn.Path.String(), keyword)
			assert.Equal(t, []string{"a", "b"}, idents(got))
		})
	}
}

func TestQueries_IncludeReceiver(t *testing.T) {
	b := newTree(Rust)
	fn := b.add(b.root, "transfer", p(0, "fn"), map[string]any{"mut": true})
	amount := b.add(fn, "amount", p(0, "fn", "inputs", 0), nil)
	b.add(b.root, "other", p(1, "fn"), nil)

	tests := []struct {
		name string
		got  NodeList
		want []string
	}{
		{"names", fn.FindByNames("transfer"), []string{"transfer"}},
		{"names with child", fn.FindByNames("transfer", "amount"), []string{"transfer", "amount"}},
		{"mutables", fn.FindMutables(), []string{"transfer"}},
		{"functions", fn.FindAllFunctions(), []string{"transfer"}},
		{"function names", fn.FindFunctionsByNames("transfer"), []string{"transfer"}},
		{"parent", amount.FindByParent("transfer"), []string{"amount"}},
		{"leaf", amount.FindByNames("amount"), []string{"amount"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, idents(tt.got))
		})
	}
}

func TestQueries_ChainedFilters(t *testing.T) {
	b := newTree(Rust)
	fn := b.add(b.root, "transfer", p(0, "fn"), map[string]any{"mut": true})
	b.add(fn, "amount", p(0, "fn", "inputs", 0), map[string]any{"mut": true})
	b.add(b.root, "deposit", p(1, "fn"), nil)

	fns := b.root.FindFunctionsByNames("transfer")
	require.Equal(t, []string{"transfer"}, idents(fns))

	tests := []struct {
		name string
		got  NodeList
		want []string
	}{
		{"names", fns.FindByNames("transfer"), []string{"transfer"}},
		{"mutables", fns.FindMutables(), []string{"transfer", "amount"}},
		{"patterns", fns.FindFunctionsByNamePatterns("^trans"), []string{"transfer"}},
		{"functions of mutables", b.root.FindMutables().FindAllFunctions(), []string{"transfer"}},
		{"group", NodeListGroup{fns}.FindAllFunctions(), []string{"transfer"}},
		{"no match", fns.FindByNames("deposit"), []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, idents(tt.got))
		})
	}
}

func rustComparisonTree() (*treeBuilder, *Node) {
	b := newTree(Rust)
	fn := b.add(b.root, "check", p(0, "fn"), nil)
	base := p(0, "fn", "stmts", 0, "expr", "if", "cond", "binary")
	b.add(fn, "owner", base.Join(Field("left"), Field("path"), Field("segments"), Index(0)), nil)
	b.add(fn, "signer", base.Join(Field("right"), Field("path"), Field("segments"), Index(0)), nil)
	un := p(0, "fn", "stmts", 1, "expr", "if", "cond", "unary")
	b.add(fn, "is_signer", un.Join(Field("expr"), Field("field")), nil)
	return b, fn
}

func TestFindComparisonsBetween_Symmetric(t *testing.T) {
	b, _ := rustComparisonTree()

	ab := b.root.FindComparisonsBetween("owner", "signer")
	ba := b.root.FindComparisonsBetween("signer", "owner")
	require.Len(t, ab, 1)
	require.Len(t, ba, 1)
	assert.Equal(t, []string{"owner", "signer"}, idents(ab[0]))
	assert.Equal(t, idents(ab[0]), idents(ba[0]))

	assert.Empty(t, b.root.FindComparisonsBetween("owner", "nobody"))
}

func TestFindComparisonInvolving(t *testing.T) {
	b, _ := rustComparisonTree()
	assert.Equal(t, []string{"signer"}, idents(b.root.FindComparisonInvolving("signer")))
	assert.Equal(t, []string{"is_signer"}, idents(b.root.FindComparisonInvolving("is_signer")))
	assert.Empty(t, b.root.FindComparisonInvolving("check"))
}

func TestFindAssignments(t *testing.T) {
	b := newTree(Rust)
	fn := b.add(b.root, "main", p(0, "fn"), nil)
	b.add(fn, "x", p(0, "fn", "stmts", 0, "let", "pat", "ident"), nil)
	y := b.add(fn, "y", p(0, "fn", "stmts", 1, "let", "pat", "ident"), nil)
	x := b.add(fn, "x", p(0, "fn", "stmts", 1, "let", "init", "expr", "path", "segments", 0), nil)
	b.add(fn, "z", p(0, "fn", "stmts", 2, "expr", "assign", "left", "path", "segments", 0), nil)
	b.add(fn, "y", p(0, "fn", "stmts", 2, "expr", "assign", "right", "path", "segments", 0), nil)

	got := b.root.FindAssignments("y", "x")
	require.Len(t, got, 1)
	assert.Same(t, y, got[0][0])
	assert.Same(t, x, got[0][1])

	assert.Len(t, b.root.FindAssignments("z", "y"), 1)
	assert.Empty(t, b.root.FindAssignments("y", "z"))
}

func TestFindMutablesAndAccountTypes(t *testing.T) {
	b := newTree(Rust)
	accounts := b.add(b.root, "Withdraw", p(0, "struct"), nil)
	vault := b.add(accounts, "vault", p(0, "struct", "fields", "named", 0), map[string]any{"mut": true})
	b.add(vault, "Account", p(0, "struct", "fields", "named", 0, "ty", "path", "segments", 0), nil)
	auth := b.add(accounts, "authority", p(0, "struct", "fields", "named", 1), nil)
	b.add(auth, "Signer", p(0, "struct", "fields", "named", 1, "ty", "path", "segments", 0), nil)

	assert.Equal(t, []string{"vault"}, idents(b.root.FindMutables()))
	assert.Equal(t, []string{"vault"}, idents(b.root.FindAccountTypedNodes("vault")))
	assert.Empty(t, b.root.FindAccountTypedNodes("authority"))
	assert.Equal(t, []string{"authority"}, idents(b.root.FindAccountTypedNodes("authority", "Signer")))
}

func TestFindMethodCallsAndMemberAccesses(t *testing.T) {
	b := newTree(Rust)
	call := b.add(b.root, "transfer", p(0, "expr", "method_call"), nil)
	b.add(call, "token", p(0, "expr", "method_call", "receiver"), nil)
	macro := b.add(b.root, "require", p(1, "macro"), nil)
	b.add(macro, "owner", p(1, "macro", "tokens", 0), nil)

	assert.Equal(t, []string{"transfer"}, idents(b.root.FindMethodCalls("token", "transfer")))
	assert.Empty(t, b.root.FindMethodCalls("other", "transfer"))
	assert.Equal(t, []string{"owner"}, idents(b.root.FindMemberAccesses("owner")))
}

func TestFindNegativeOfOperation(t *testing.T) {
	b := newTree(Rust)
	fn := b.add(b.root, "f", p(0, "fn"), nil)
	b.add(fn, "a", p(0, "fn", "a"), nil)
	b.add(fn, "b", p(0, "fn", "b"), nil)

	got, err := fn.FindNegativeOfOperation("find_by_names", "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"f", "b"}, idents(got))

	_, err = fn.FindNegativeOfOperation("no_such_op")
	assert.ErrorIs(t, err, ErrUnknownOperation)

	t.Run("cannot negate itself", func(t *testing.T) {
		_, err := fn.FindNegativeOfOperation("find_negative_of_operation", "find_by_names", "a")
		assert.ErrorIs(t, err, ErrSelfReference)

		_, err = Invoke(NodeList{fn}, "find_negative_of_operation", "find_negative_of_operation", "find_by_names")
		assert.ErrorIs(t, err, ErrSelfReference)
	})
}

func solidityTree() (*treeBuilder, map[string]*Node) {
	b := newTree(Solidity)
	b.file = "Vault.sol"
	nodes := map[string]*Node{}
	fn := b.add(b.root, "setOwner", p("nodes", 0, "nodes", 0), map[string]any{"node_type": "FunctionDefinition"})
	body := fn.Path.Join(Field("body"), Field("statements"))

	eq := b.add(fn, "", body.Join(Index(0), Field("condition")), map[string]any{"node_type": "BinaryOperation", "operator": "=="})
	nodes["owner"] = b.add(eq, "owner", eq.Path.Append(Field("leftExpression")), map[string]any{"node_type": "Identifier"})
	nodes["sender"] = b.add(eq, "sender", eq.Path.Append(Field("rightExpression")), map[string]any{"node_type": "MemberAccess"})
	b.add(nodes["sender"], "msg", eq.Path.Join(Field("rightExpression"), Field("expression")), map[string]any{"node_type": "Identifier"})
	nodes["eq"] = eq

	sum := b.add(fn, "", body.Join(Index(1), Field("expression")), map[string]any{"node_type": "BinaryOperation", "operator": "+"})
	b.add(sum, "owner", sum.Path.Append(Field("leftExpression")), map[string]any{"node_type": "Identifier"})
	b.add(sum, "msg", sum.Path.Append(Field("rightExpression")), map[string]any{"node_type": "Identifier"})

	asg := b.add(fn, "", body.Join(Index(2), Field("expression")), map[string]any{"node_type": "Assignment", "type_string": "address"})
	nodes["lhs"] = b.add(asg, "owner", asg.Path.Append(Field("leftHandSide")), map[string]any{"node_type": "Identifier"})
	nodes["rhs"] = b.add(asg, "newOwner", asg.Path.Append(Field("rightHandSide")), map[string]any{"node_type": "Identifier"})

	decl := b.add(fn, "", body.Append(Index(3)), map[string]any{"node_type": "VariableDeclarationStatement"})
	nodes["prev"] = b.add(decl, "prev", decl.Path.Join(Field("declarations"), Index(0)), map[string]any{"node_type": "VariableDeclaration"})
	nodes["init"] = b.add(decl, "owner", decl.Path.Append(Field("initialValue")), map[string]any{"node_type": "Identifier"})

	view := b.add(b.root, "peek", p("nodes", 0, "nodes", 1), map[string]any{"node_type": "FunctionDefinition", "stateMutability": "view"})
	b.add(view, "", view.Path.Join(Field("body"), Field("statements"), Index(0), Field("expression")),
		map[string]any{"node_type": "Assignment", "type_string": "address payable"})
	return b, nodes
}

func TestSolidityComparisonsBetween(t *testing.T) {
	b, nodes := solidityTree()

	tests := []struct {
		name string
		recv *Node
		a, b string
		want int
	}{
		{"operands in order", b.root, "owner", "msg", 1},
		{"operands swapped", b.root, "msg", "owner", 1},
		{"arithmetic is not a comparison", b.root, "owner", "newOwner", 0},
		{"receiver is the comparison", nodes["eq"], "owner", "sender", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.recv.FindComparisonsBetween(tt.a, tt.b)
			require.Len(t, got, tt.want)
			if tt.want > 0 {
				assert.Same(t, nodes["owner"], got[0][0])
				assert.Same(t, nodes["sender"], got[0][1])
			}
		})
	}
}

func TestSolidityAssignmentSites(t *testing.T) {
	b, nodes := solidityTree()

	tests := []struct {
		name         string
		ident, value string
		left, right  string
	}{
		{"assignment", "owner", "newOwner", "lhs", "rhs"},
		{"declaration", "prev", "owner", "prev", "init"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := b.root.FindAssignments(tt.ident, tt.value)
			require.Len(t, got, 1)
			assert.Same(t, nodes[tt.left], got[0][0])
			assert.Same(t, nodes[tt.right], got[0][1])
		})
	}

	assert.Empty(t, b.root.FindAssignments("newOwner", "owner"))
	assert.Equal(t, []string{"setOwner"}, idents(b.root.FindFunctionsWithAddressAssignments()),
		"view functions are skipped")
}

func TestNodeList_ForwardsAndFlattens(t *testing.T) {
	b := newTree(Rust)
	f1 := b.add(b.root, "f1", p(0, "fn"), nil)
	b.add(f1, "x", p(0, "fn", "a"), map[string]any{"mut": true})
	f2 := b.add(b.root, "f2", p(1, "fn"), nil)
	b.add(f2, "x", p(1, "fn", "a"), map[string]any{"mut": true})

	fns := b.root.FindAllFunctions()
	require.Equal(t, []string{"f1", "f2"}, idents(fns))
	assert.Len(t, fns.FindMutables(), 2)

	grp := NodeListGroup{fns, NodeList{f2}}
	assert.Equal(t, []string{"x", "x", "x"}, idents(grp.FindByNames("x")))
	assert.Len(t, grp.Nodes(), 3)
}

func TestTerminators(t *testing.T) {
	b := newTree(Rust)
	n := b.add(b.root, "a", p(0), nil)

	first, err := NodeList{n}.First()
	require.NoError(t, err)
	assert.Same(t, n, first)

	_, err = NodeList{}.First()
	assert.ErrorIs(t, err, ErrStop)
	_, err = NodeList{}.ExitOnNone()
	assert.ErrorIs(t, err, ErrStop)
	_, err = NodeList{n}.ExitOnValue()
	assert.ErrorIs(t, err, ErrStop)
	_, err = NodeList{}.ExitOnValue()
	assert.NoError(t, err)

	_, err = NodeListGroup{}.First()
	assert.ErrorIs(t, err, ErrStop)
	_, err = NodeListGroup{{n}}.ExitOnValue()
	assert.ErrorIs(t, err, ErrStop)
}

func TestInvoke(t *testing.T) {
	b := newTree(Rust)
	b.add(b.root, "a", p(0), nil)

	res, err := Invoke(b.root, "find_by_names", "a")
	require.NoError(t, err)
	assert.Len(t, res.Nodes(), 1)

	_, err = Invoke(b.root, "find_by_parent")
	assert.ErrorIs(t, err, ErrArity)
	_, err = Invoke(b.root, "drop_tables")
	assert.ErrorIs(t, err, ErrUnknownOperation)

	names := map[string]bool{}
	for _, op := range Operations() {
		names[op.Name] = true
	}
	assert.True(t, names["find_assignments"])
	assert.True(t, names["find_external_calls"])
}

func TestToResult(t *testing.T) {
	b := newTree(Rust)
	fn := b.add(b.root, "main", p(0, "fn"), nil)
	b.add(fn, "x", p(0, "fn", "stmts", 0), map[string]any{"mut": true})

	res := fn.Children[0].ToResult()
	assert.Equal(t, "x", res["ident"])
	assert.Equal(t, "main", res["parent"])
	assert.Equal(t, "[0].fn.stmts[0]", res["access_path"])
	assert.Equal(t, map[string]any{"file": "lib.rs", "line": 1, "start_col": 1, "end_col": 2}, res["src"])

	rootRes := b.root.ToResult()
	assert.Nil(t, rootRes["ident"])
	assert.Nil(t, rootRes["src"])
	assert.Len(t, rootRes["children"], 1)

	_, err := json.Marshal(b.f)
	assert.NoError(t, err)
}

func TestForest(t *testing.T) {
	f := NewForest()
	f.NewRoot(Solidity, "b.sol")
	f.NewRoot(Rust, "a.rs")

	assert.Equal(t, []string{"a.rs", "b.sol"}, f.Files())
	assert.Equal(t, []Language{Rust, Solidity}, f.Languages())
	assert.Equal(t, 2, f.Len())

	r, ok := f.Root("a.rs")
	require.True(t, ok)
	assert.True(t, r.IsRoot())
}
