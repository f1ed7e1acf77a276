package wiki

import (
	"errors"
	"strings"
	"testing"
)

func TestParseByTitle(t *testing.T) {
	c := NewClient()
	raw := []byte(`{"query":{"pages":{"1234":{"pageid":1234,"title":"Creeper","extract":"<p>A <b>creeper</b> is a hostile mob.</p>\n"}}}}`)
	e, err := c.parse(raw, "Creeper")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if e.Title != "Creeper" {
		t.Fatalf("title = %q", e.Title)
	}
	if e.Content != "A creeper is a hostile mob." {
		t.Fatalf("content = %q", e.Content)
	}
	if e.URL != defaultSite+"/w/Creeper" {
		t.Fatalf("url = %q", e.URL)
	}
}

func TestParseMissingPage(t *testing.T) {
	c := NewClient()
	raw := []byte(`{"query":{"pages":{"-1":{"title":"Nope","missing":""}}}}`)
	if _, err := c.parse(raw, "Nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestParseEmptyExtract(t *testing.T) {
	c := NewClient()
	raw := []byte(`{"query":{"pages":{"55":{"title":"Stub","extract":""}}}}`)
	if _, err := c.parse(raw, "Stub"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestParseMalformed(t *testing.T) {
	c := NewClient()
	if _, err := c.parse([]byte(`{not json`), "x"); err == nil {
		t.Fatalf("malformed body should error")
	}
}

func TestCleanExtractTruncates(t *testing.T) {
	long := strings.Repeat("ab", 300)
	got := cleanExtract(long, 200)
	if len([]rune(got)) != 203 {
		t.Fatalf("truncated length = %d runes", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("truncated summary should end with ellipsis")
	}
}

func TestCleanExtractCollapsesWhitespace(t *testing.T) {
	got := cleanExtract("<p>one\n\n  two</p>  <i>three</i>", 200)
	if got != "one two three" {
		t.Fatalf("got %q", got)
	}
}

func TestWithSiteTrimsSlash(t *testing.T) {
	c := NewClient(WithSite("https://example.org/"))
	raw := []byte(`{"query":{"pages":{"9":{"title":"Torch","extract":"Light."}}}}`)
	e, err := c.parse(raw, "Torch")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if e.URL != "https://example.org/w/Torch" {
		t.Fatalf("url = %q", e.URL)
	}
}
