package lexer

import (
	"testing"

	"qbx/token"
)

func scanAll(t *testing.T, src string) []token.Token {
	t.Helper()
	toks, err := All(src)
	if err != nil {
		t.Fatalf("lex(%q): %v", src, err)
	}
	return toks
}

func TestHelloWorld(t *testing.T) {
	toks := scanAll(t, `PRINT "Hello, World!"`)
	if toks[0].Kind != token.PRINT {
		t.Fatalf("want PRINT, got %v", toks[0].Kind)
	}
	if toks[1].Kind != token.StrLit || toks[1].Text != "Hello, World!" {
		t.Fatalf("want StrLit(Hello, World!), got %v", toks[1])
	}
}

func TestLineNumbers(t *testing.T) {
	toks := scanAll(t, "10 PRINT\n20 END")
	want := []token.Kind{token.LineNum, token.PRINT, token.Newline, token.LineNum, token.END, token.EOF}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Fatalf("token %d: want %v, got %v", i, k, toks[i].Kind)
		}
	}
	if toks[0].Int != 10 || toks[3].Int != 20 {
		t.Fatalf("line numbers decoded wrong: %v %v", toks[0].Int, toks[3].Int)
	}
}

func TestDigitsMidLineAreIntegers(t *testing.T) {
	toks := scanAll(t, "X = 1 + 2 * 3 <> 4")
	want := []token.Kind{token.Ident, token.Eq, token.IntLit, token.Plus, token.IntLit, token.Star, token.IntLit, token.Ne, token.IntLit, token.EOF}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Fatalf("token %d: want %v, got %v", i, k, toks[i].Kind)
		}
	}
}

func TestTypeSuffixes(t *testing.T) {
	toks := scanAll(t, "X% Y$ Z#")
	cases := []struct {
		text   string
		suffix token.Suffix
	}{
		{"X", token.Percent},
		{"Y", token.Dollar},
		{"Z", token.Hashf},
	}
	for i, c := range cases {
		if toks[i].Text != c.text || toks[i].Suffix != c.suffix {
			t.Fatalf("token %d: want %q%c, got %q%c", i, c.text, c.suffix, toks[i].Text, toks[i].Suffix)
		}
	}
}

func TestCaseInsensitiveKeywords(t *testing.T) {
	forms := []string{"PRINT", "print", "Print", "pRiNt"}
	var first []token.Token
	for i, f := range forms {
		toks := scanAll(t, f)
		if i == 0 {
			first = toks
			continue
		}
		if toks[0].Kind != first[0].Kind {
			t.Fatalf("%q lexed to %v, want %v", f, toks[0].Kind, first[0].Kind)
		}
	}
}

func TestStringEscapedQuote(t *testing.T) {
	toks := scanAll(t, `"she said ""hi"""`)
	want := `she said "hi"`
	if toks[0].Text != want {
		t.Fatalf("want %q, got %q", want, toks[0].Text)
	}
}

func TestUnterminatedString(t *testing.T) {
	_, err := All(`PRINT "oops`)
	if err == nil {
		t.Fatal("expected lex error for unterminated string")
	}
}

func TestHexAndOctalLiterals(t *testing.T) {
	toks := scanAll(t, "&H1F &O17")
	if toks[0].Kind != token.IntLit || toks[0].Int != 0x1F {
		t.Fatalf("hex literal: got %v", toks[0])
	}
	if toks[1].Kind != token.IntLit || toks[1].Int != 017 {
		t.Fatalf("octal literal: got %v", toks[1])
	}
}

func TestExponentLetterD(t *testing.T) {
	toks := scanAll(t, "PRINT 1.5D0")
	if toks[1].Kind != token.FloatLit || toks[1].Suffix != token.Hashf {
		t.Fatalf("want forced-double float literal, got %v", toks[1])
	}
}

func TestTrailingSigilOnLiterals(t *testing.T) {
	toks := scanAll(t, "PRINT 5% 5& 5! 5#")
	want := []token.Suffix{token.Percent, token.Amp, token.Bang, token.Hashf}
	for i, s := range want {
		if toks[i+1].Suffix != s {
			t.Fatalf("token %d: want suffix %c, got %c", i+1, s, toks[i+1].Suffix)
		}
	}
	if toks[1].Kind != token.IntLit || toks[2].Kind != token.IntLit {
		t.Fatalf("5%% and 5& should stay integer literals, got %v %v", toks[1], toks[2])
	}
	if toks[3].Kind != token.FloatLit || toks[4].Kind != token.FloatLit {
		t.Fatalf("5! and 5# should become float literals, got %v %v", toks[3], toks[4])
	}
}

func TestCommentsToEndOfLine(t *testing.T) {
	toks := scanAll(t, "PRINT 1 ' a comment\nPRINT 2 REM another\nEND")
	var kinds []token.Kind
	for _, tk := range toks {
		kinds = append(kinds, tk.Kind)
	}
	want := []token.Kind{
		token.PRINT, token.IntLit, token.Newline,
		token.PRINT, token.IntLit, token.Newline,
		token.END, token.EOF,
	}
	if len(kinds) != len(want) {
		t.Fatalf("got %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("token %d: got %v, want %v", i, kinds[i], want[i])
		}
	}
}

func TestEndIfFoldsToSingleToken(t *testing.T) {
	toks := scanAll(t, "IF X THEN\nEND IF")
	var last token.Kind
	for _, tk := range toks {
		if tk.Kind == token.ENDIF {
			last = tk.Kind
		}
	}
	if last != token.ENDIF {
		t.Fatal("expected END IF to fold into a single ENDIF token")
	}
}
