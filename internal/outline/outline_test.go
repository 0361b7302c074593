package outline

import (
	"strings"
	"testing"

	"github.com/starford/edital/internal/models"
)

func names(topics []*models.Topic) []string {
	out := make([]string, len(topics))
	for i, t := range topics {
		out[i] = t.Name
	}
	return out
}

func TestParse_TwoRootsWithChildren(t *testing.T) {
	forest := Parse("Direito\n- Constitucional\n- Administrativo\nPortuguês")
	if len(forest) != 2 {
		t.Fatalf("len(roots) = %d, want 2", len(forest))
	}
	if forest[0].Name != "Direito" || forest[1].Name != "Português" {
		t.Errorf("roots = %v", names(forest))
	}
	kids := names(forest[0].Children)
	if len(kids) != 2 || kids[0] != "Constitucional" || kids[1] != "Administrativo" {
		t.Errorf("children = %v, want [Constitucional Administrativo]", kids)
	}
	if len(forest[1].Children) != 0 {
		t.Errorf("Português should have no children, got %v", names(forest[1].Children))
	}
	if !forest[0].IsRoot || forest[0].IsNested {
		t.Error("root flags wrong")
	}
	c := forest[0].Children[0]
	if c.IsRoot || !c.IsNested || c.Done {
		t.Errorf("child flags = %+v", c)
	}
}

func TestParse_NodeCountEqualsLineCount(t *testing.T) {
	inputs := []string{
		"",
		"a",
		"a\n\nb",
		"a\n- b\n-- c\n--- d\n- e\n\n f \n--",
		"- orphan\n-- deeper\nroot",
		"\n\n\n",
	}
	for _, in := range inputs {
		got := Count(Parse(in))
		want := len(strings.Split(in, "\n"))
		if got != want {
			t.Errorf("Count(Parse(%q)) = %d, want %d", in, got, want)
		}
	}
}

func TestParse_DepthFollowsMarkers(t *testing.T) {
	forest := Parse("A\n- B\n-- C\n--- D\n-- E\n- F")
	a := forest[0]
	if names(a.Children)[0] != "B" || names(a.Children)[1] != "F" {
		t.Fatalf("A children = %v", names(a.Children))
	}
	b := a.Children[0]
	if got := names(b.Children); len(got) != 2 || got[0] != "C" || got[1] != "E" {
		t.Fatalf("B children = %v, want [C E]", got)
	}
	if got := names(b.Children[0].Children); len(got) != 1 || got[0] != "D" {
		t.Errorf("C children = %v, want [D]", got)
	}
	if Depth(forest) != 4 {
		t.Errorf("depth = %d, want 4", Depth(forest))
	}
}

func TestParse_UnmarkedLineResetsToRoot(t *testing.T) {
	forest := Parse("A\n- B\n-- C\nD\n- E")
	if len(forest) != 2 {
		t.Fatalf("roots = %v", names(forest))
	}
	d := forest[1]
	if d.Name != "D" || len(d.Children) != 1 || d.Children[0].Name != "E" {
		t.Errorf("D = %+v", d)
	}
}

func TestParse_EmptyLineIsSeparatorRoot(t *testing.T) {
	forest := Parse("A\n- B\n\n- C")
	if len(forest) != 2 {
		t.Fatalf("roots = %v", names(forest))
	}
	sep := forest[1]
	if sep.Name != "" || !sep.IsRoot {
		t.Errorf("separator = %+v", sep)
	}
	// The marked line after a separator nests under it.
	if len(sep.Children) != 1 || sep.Children[0].Name != "C" {
		t.Errorf("separator children = %v", names(sep.Children))
	}
}

func TestParse_MarkedLineWithoutParentBecomesRoot(t *testing.T) {
	forest := Parse("-- orphan\nroot")
	if len(forest) != 2 {
		t.Fatalf("roots = %v", names(forest))
	}
	if forest[0].Name != "orphan" || forest[0].IsRoot || !forest[0].IsNested {
		t.Errorf("orphan = %+v", forest[0])
	}
}

func TestParse_MarkerWithoutSpaceIsText(t *testing.T) {
	forest := Parse("A\n-B\n--")
	if got := names(forest); len(got) != 3 || got[1] != "-B" || got[2] != "--" {
		t.Errorf("roots = %v, want [A -B --]", got)
	}
}

func TestParse_TrimsSurroundingWhitespace(t *testing.T) {
	forest := Parse("  A  \r\n   - B   ")
	if forest[0].Name != "A" {
		t.Errorf("root = %q", forest[0].Name)
	}
	if len(forest[0].Children) != 1 || forest[0].Children[0].Name != "B" {
		t.Errorf("children = %v", names(forest[0].Children))
	}
}

func TestParseEdited_DoneSuffix(t *testing.T) {
	forest := ParseEdited("A (lido)\n- B\n- C (lido)\nD (lido) extra")
	if !forest[0].Done || forest[0].Name != "A" {
		t.Errorf("A = %+v", forest[0])
	}
	if forest[0].Children[0].Done {
		t.Error("B should not be done")
	}
	if c := forest[0].Children[1]; !c.Done || c.Name != "C" {
		t.Errorf("C = %+v", c)
	}
	if d := forest[1]; d.Done || d.Name != "D (lido) extra" {
		t.Errorf("mid-name marker should be kept: %+v", d)
	}
}

func TestParseEdited_MarkerWithoutSpace(t *testing.T) {
	forest := ParseEdited("A\n-B")
	if len(forest) != 1 || len(forest[0].Children) != 1 || forest[0].Children[0].Name != "B" {
		t.Errorf("forest = %v", names(forest))
	}
}

func TestFormat_RoundTripPreservesDepth(t *testing.T) {
	src := "Direito\n- Constitucional (lido)\n-- Princípios\n--- Legalidade (lido)\n- Administrativo\n\nPortuguês"
	forest := ParseEdited(src)
	text := Format(forest)
	if text != src {
		t.Errorf("Format = %q, want %q", text, src)
	}
	again := ParseEdited(text)
	if Format(again) != text {
		t.Error("second round trip changed the text")
	}
	if Depth(again) != 4 {
		t.Errorf("depth = %d, want 4", Depth(again))
	}
}

func TestFormat_UsesTreeDepthNotMarkerCount(t *testing.T) {
	// "---" under a root is attached one level down.
	forest := Parse("A\n--- B")
	if got := Format(forest); got != "A\n- B" {
		t.Errorf("Format = %q", got)
	}
}

func TestFormatFlat_CollapsesDeepNesting(t *testing.T) {
	forest := Parse("A\n- B\n-- C\n--- D")
	text := FormatFlat(forest)
	if text != "A\n- B\n- C\n- D" {
		t.Fatalf("FormatFlat = %q", text)
	}
	again := ParseEdited(text)
	if Depth(again) != 2 {
		t.Errorf("depth after flat round trip = %d, want 2", Depth(again))
	}
	if got := names(again[0].Children); len(got) != 3 || got[0] != "B" || got[1] != "C" || got[2] != "D" {
		t.Errorf("flattened children = %v, want [B C D]", got)
	}
}

func TestFormatFlat_KeepsDoneMarks(t *testing.T) {
	forest := Parse("A\n- B")
	forest[0].Done = true
	if got := FormatFlat(forest); got != "A (lido)\n- B" {
		t.Errorf("FormatFlat = %q", got)
	}
}
