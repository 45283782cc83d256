package sandbox

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/agentic-research/radar/internal/graph"
	"github.com/agentic-research/radar/internal/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const assignSource = `fn main() {
    let x = 1;
    let y = x;
}
`

const assignSyn = `{"items": [{"fn": {"ident": "main", "stmts": [
  {"let": {"pat": {"ident": {"ident": "x"}}, "init": {"expr": {"lit": {"int": "1"}}}}},
  {"let": {"pat": {"ident": {"ident": "y"}}, "init": {"expr": {"path": {"segments": [{"ident": "x"}]}}}}}
]}}]}`

func testForest(t *testing.T) *graph.Forest {
	t.Helper()
	forest, err := ingest.NewEngine(nil).Ingest(context.Background(), ingest.Unit{
		Language: graph.Rust,
		Path:     "src/lib.rs",
		Source:   assignSource,
		AST:      []byte(assignSyn),
	})
	require.NoError(t, err)
	return forest
}

func TestEvaluate_RejectsEscapes(t *testing.T) {
	forest := testForest(t)
	e := NewExecutor(nil, 0)

	corpus := map[string]string{
		"import":                 "import os\nos.system('ls')",
		"from import":            "from os import system",
		"dunder import":          "__import__('os').system('ls')",
		"subclass walk":          "x = ().__class__.__bases__[0].__subclasses__()",
		"subclass comprehension": "x = [c for c in ().__class__.__base__.__subclasses__()]",
		"dunder on binding":      "print.__self__",
		"assembled import name":  "name = '__imp' + 'ort__'\nglobals()[name]('os')",
		"getattr":                "getattr(ast, 'append')",
		"dir":                    "print(dir(ast))",
		"eval":                   "eval('1 + 1')",
		"exec":                   "exec('x = 1')",
		"compile":                "compile('x', 'f', 'exec')",
		"open":                   "open('/etc/passwd')",
		"load":                   "load('os.star', 'system')",
		"fail":                   "fail('boom')",
		"hasattr":                "print(hasattr(ast, 'x'))",
		"side effect first":      "print('side effect')\nopen('/etc/passwd')",
	}
	for name, script := range corpus {
		t.Run(name, func(t *testing.T) {
			out, err := e.Evaluate(context.Background(), script, forest)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSecurityViolation)
			assert.Empty(t, out.Lines, "nothing runs before the check")
		})
	}
}

func TestEvaluate_BenignScripts(t *testing.T) {
	forest := testForest(t)
	e := NewExecutor(nil, 0)

	tests := []struct {
		name   string
		script string
		want   []string
	}{
		{"print", "print('hello world')", []string{"hello world"}},
		{"comprehension", "[print(i) for i in range(3)]", []string{"0", "1", "2"}},
		{"loop", "for i in range(3):\n    print(i)", []string{"0", "1", "2"}},
		{"containers", "d = dict(a=1)\nprint(len(d), list(range(2)), tuple([1]))", []string{"1 [0,1] [1]"}},
		{"set and type", "s = set([1, 2, 2])\nprint(type(s), len(s))", []string{"set 2"}},
		{"sep", "print('a', 'b', sep='-')", []string{"a-b"}},
		{"ast binding", "for file, root in ast:\n    print(file, root.ident, root.language)", []string{"src/lib.rs None rust"}},
		{"conditional", "n = len(ast)\nif n > 0:\n    print('files', n)\nelse:\n    print('none')", []string{"files 1"}},
		{"shadowed builtin", "len = 3\nprint(len)", []string{"3"}},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := e.Evaluate(context.Background(), tt.script, forest)
			require.NoError(t, err)
			assert.False(t, out.Stopped)
			assert.Equal(t, tt.want, out.Lines)
		})
	}
}

func TestEvaluate_Queries(t *testing.T) {
	forest := testForest(t)
	e := NewExecutor(nil, 0)

	script := `
for file, root in ast:
    for pair in root.find_assignments("y", "x"):
        print(pair[1])
`
	out, err := e.Evaluate(context.Background(), script, forest)
	require.NoError(t, err)
	require.Len(t, out.Lines, 1)

	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out.Lines[0]), &res))
	assert.Equal(t, "x", res["ident"])
	assert.Equal(t, map[string]any{"file": "src/lib.rs", "line": float64(3), "start_col": float64(13), "end_col": float64(14)}, res["src"])

	t.Run("chained on lists", func(t *testing.T) {
		out, err := e.Evaluate(context.Background(), `
root = ast[0][1]
xs = root.find_by_names("main").find_by_names("x")
print(len(xs), xs[0].parent.ident, xs[1].access_path)
print(xs)
`, forest)
		require.NoError(t, err)
		require.Len(t, out.Lines, 2)
		assert.Equal(t, "2 main [0].fn.stmts[1].let.init.expr.path.segments[0]", out.Lines[0])
		var list []map[string]any
		require.NoError(t, json.Unmarshal([]byte(out.Lines[1]), &list))
		assert.Len(t, list, 2)
	})

	t.Run("list arguments", func(t *testing.T) {
		out, err := e.Evaluate(context.Background(), `print(len(ast[0][1].find_by_names(["x", "y"])))`, forest)
		require.NoError(t, err)
		assert.Equal(t, []string{"3"}, out.Lines)
	})

	t.Run("metadata and to_result", func(t *testing.T) {
		out, err := e.Evaluate(context.Background(), `
main = ast[0][1].find_by_names("main").first()
r = main.to_result()
print(r["ident"], r["parent"], main.src["line"])
`, forest)
		require.NoError(t, err)
		assert.Equal(t, []string{"main None 1"}, out.Lines)
	})

	t.Run("bad arity", func(t *testing.T) {
		_, err := e.Evaluate(context.Background(), `ast[0][1].find_by_parent()`, forest)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRuleRuntime)
	})
}

func TestEvaluate_Terminators(t *testing.T) {
	forest := testForest(t)
	e := NewExecutor(nil, 0)

	tests := []struct {
		name    string
		script  string
		stopped bool
		want    []string
	}{
		{"first on empty", "print('before')\nast[0][1].find_by_names('nope').first()\nprint('after')", true, nil},
		{"exit_on_none on empty", "ast[0][1].find_mutables().exit_on_none()\nprint('after')", true, nil},
		{"exit_on_value with matches", "ast[0][1].find_by_names('x').exit_on_value()", true, nil},
		{"exit_on_value on empty", "ast[0][1].find_by_names('nope').exit_on_value()\nprint('kept')", false, []string{"kept"}},
		{"group first", "g = ast[0][1].find_assignments('y', 'x').first()\nprint(len(g))", false, []string{"2"}},
		{"group first on empty", "ast[0][1].find_assignments('q', 'x').first()", true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := e.Evaluate(context.Background(), tt.script, forest)
			require.NoError(t, err)
			assert.Equal(t, tt.stopped, out.Stopped)
			assert.Equal(t, tt.want, out.Lines)
		})
	}
}

func TestEvaluate_RuntimeErrors(t *testing.T) {
	forest := testForest(t)
	e := NewExecutor(nil, 0)

	for name, script := range map[string]string{
		"division":       "x = 1 // 0",
		"missing attr":   "ast[0][1].no_such_field",
		"syntax":         "for x in",
		"recursion":      "def f(n):\n    return f(n)\nf(1)",
		"while":          "while True:\n    pass",
		"frozen binding": "ast.append(1)",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := e.Evaluate(context.Background(), script, forest)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrRuleRuntime)
			assert.NotErrorIs(t, err, ErrSecurityViolation)
		})
	}
}

func TestEvaluate_Isolation(t *testing.T) {
	forest := testForest(t)
	e := NewExecutor(nil, 0)

	out, err := e.Evaluate(context.Background(), "counter = 1\nprint(counter)", forest)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, out.Lines)

	_, err = e.Evaluate(context.Background(), "print(counter)", forest)
	assert.ErrorIs(t, err, ErrSecurityViolation, "globals never leak between evaluations")
}

func TestEvaluate_Concurrent(t *testing.T) {
	forest := testForest(t)
	e := NewExecutor(nil, 0)
	script := "seen = []\nfor n in ast[0][1].find_by_names('x', 'y'):\n    seen.append(n.ident)\nprint(seen)"

	var wg sync.WaitGroup
	results := make([][]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := e.Evaluate(context.Background(), script, forest)
			assert.NoError(t, err)
			results[i] = out.Lines
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		assert.Equal(t, []string{`["x","y","x"]`}, r)
	}
}

func TestEvaluate_Limits(t *testing.T) {
	forest := testForest(t)
	loop := "for i in range(100000000):\n    x = i"

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewExecutor(nil, 0).Evaluate(ctx, loop, forest)
		assert.ErrorIs(t, err, ErrRuleRuntime)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("timeout", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := NewExecutor(nil, 0).Evaluate(ctx, loop, forest)
		assert.ErrorIs(t, err, ErrRuleRuntime)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("max steps", func(t *testing.T) {
		_, err := NewExecutor(nil, 1000).Evaluate(context.Background(), loop, forest)
		assert.ErrorIs(t, err, ErrRuleRuntime)
	})
}

func TestCheck(t *testing.T) {
	assert.NoError(t, Check("for f, n in ast:\n    print(n.find_by_names('x'))\n"))
	assert.ErrorIs(t, Check("import os\n"), ErrSecurityViolation)
	assert.ErrorIs(t, Check("print(open('x'))\n"), ErrSecurityViolation)
	assert.ErrorIs(t, Check("print((\n"), ErrRuleRuntime)
}
