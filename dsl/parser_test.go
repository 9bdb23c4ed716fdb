package dsl

import (
	"reflect"
	"testing"

	"github.com/filterql/filterql/internal/types"
)

func mustParse(t *testing.T, expr string) *types.FilterTree {
	t.Helper()
	tree, err := Parse(expr)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", expr, err)
	}
	return tree
}

func TestParse_SingleIdent(t *testing.T) {
	tree := mustParse(t, "a")
	want := []types.PostfixToken{{Kind: types.TokenIdent, Ident: "a"}}
	if !reflect.DeepEqual(tree.Postfix, want) {
		t.Fatalf("got %#v, want %#v", tree.Postfix, want)
	}
}

func TestParse_DoubleNegationEliminated(t *testing.T) {
	tree := mustParse(t, "!!a")
	direct := mustParse(t, "a")
	if !reflect.DeepEqual(tree.Postfix, direct.Postfix) {
		t.Fatalf("!!a should reduce to a, got %#v", tree.Postfix)
	}
}

func TestParse_IdempotenceAnd(t *testing.T) {
	tree := mustParse(t, "a & a")
	direct := mustParse(t, "a")
	if !reflect.DeepEqual(tree.Postfix, direct.Postfix) {
		t.Fatalf("a&a should reduce to a, got %#v", tree.Postfix)
	}
}

func TestParse_IdempotenceOr(t *testing.T) {
	tree := mustParse(t, "a | a")
	direct := mustParse(t, "a")
	if !reflect.DeepEqual(tree.Postfix, direct.Postfix) {
		t.Fatalf("a|a should reduce to a, got %#v", tree.Postfix)
	}
}

func TestParse_RedundantParens(t *testing.T) {
	tree := mustParse(t, "(((a)))")
	direct := mustParse(t, "a")
	if !reflect.DeepEqual(tree.Postfix, direct.Postfix) {
		t.Fatalf("(((a))) should reduce to a, got %#v", tree.Postfix)
	}
}

func TestParse_PrecedenceNotBindsTighterThanAnd(t *testing.T) {
	// !a & b should parse as (!a) & b, not !(a & b)
	tree := mustParse(t, "!a & b")
	want := mustParse(t, "(!a) & b")
	if !reflect.DeepEqual(tree.Postfix, want.Postfix) {
		t.Fatalf("got %#v, want %#v", tree.Postfix, want.Postfix)
	}
}

func TestParse_PrecedenceAndBindsTighterThanOr(t *testing.T) {
	// a | b & c should parse as a | (b & c)
	tree := mustParse(t, "a | b & c")
	want := mustParse(t, "a | (b & c)")
	if !reflect.DeepEqual(tree.Postfix, want.Postfix) {
		t.Fatalf("got %#v, want %#v", tree.Postfix, want.Postfix)
	}
}

func TestParse_LeftAssociativity(t *testing.T) {
	tree := mustParse(t, "a & b & c")
	want := mustParse(t, "(a & b) & c")
	if !reflect.DeepEqual(tree.Postfix, want.Postfix) {
		t.Fatalf("got %#v, want %#v", tree.Postfix, want.Postfix)
	}
}

func TestParse_Idempotence_ReparsingSameExpressionIsStable(t *testing.T) {
	a := mustParse(t, "a & (b | !c)")
	b := mustParse(t, "a & (b | !c)")
	if !reflect.DeepEqual(a.Postfix, b.Postfix) {
		t.Fatalf("parsing the same expression twice produced different trees")
	}
}

func TestParse_UnmatchedParen(t *testing.T) {
	if _, err := Parse("(a & b"); err == nil {
		t.Fatal("expected syntax error for unmatched paren")
	}
}

func TestParse_MissingOperand(t *testing.T) {
	if _, err := Parse("a &"); err == nil {
		t.Fatal("expected syntax error for trailing operator")
	}
}

func TestParse_EmptyExpression(t *testing.T) {
	if _, err := Parse(""); err == nil {
		t.Fatal("expected syntax error for empty expression")
	}
}

func TestParse_InvalidCharacter(t *testing.T) {
	if _, err := Parse("a # b"); err == nil {
		t.Fatal("expected syntax error for invalid character")
	}
}

func TestParse_ShorthandAnd(t *testing.T) {
	tree := mustParse(t, "AND")
	want := []types.PostfixToken{{Kind: types.TokenShorthandAnd}}
	if !reflect.DeepEqual(tree.Postfix, want) {
		t.Fatalf("got %#v, want %#v", tree.Postfix, want)
	}
}

func TestParse_ShorthandOr(t *testing.T) {
	tree := mustParse(t, "OR")
	want := []types.PostfixToken{{Kind: types.TokenShorthandOr}}
	if !reflect.DeepEqual(tree.Postfix, want) {
		t.Fatalf("got %#v, want %#v", tree.Postfix, want)
	}
}

func TestParse_ShorthandNot(t *testing.T) {
	tree := mustParse(t, "not") // case-insensitive
	want := []types.PostfixToken{{Kind: types.TokenShorthandNot}}
	if !reflect.DeepEqual(tree.Postfix, want) {
		t.Fatalf("got %#v, want %#v", tree.Postfix, want)
	}
}

func TestParse_ShorthandInsideParens(t *testing.T) {
	tree := mustParse(t, "(AND) & b")
	want := []types.PostfixToken{
		{Kind: types.TokenShorthandAnd},
		{Kind: types.TokenIdent, Ident: "b"},
		{Kind: types.TokenAnd},
	}
	if !reflect.DeepEqual(tree.Postfix, want) {
		t.Fatalf("got %#v, want %#v", tree.Postfix, want)
	}
}

func TestParse_TooLong(t *testing.T) {
	long := make([]byte, DefaultMaxExpressionLength+1)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := Parse(string(long)); err == nil {
		t.Fatal("expected syntax error for over-length expression")
	}
}
