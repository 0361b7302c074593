package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/edital/internal/testutil"
	"github.com/starford/edital/internal/tracker"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	svc := tracker.NewService(testutil.TestStore(t), nil, nil)
	return New(svc, "u1")
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so handlers are called directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_subjects":
		result, err = srv.listSubjects(ctx, req)
	case "create_subject":
		result, err = srv.createSubject(ctx, req)
	case "get_outline":
		result, err = srv.getOutline(ctx, req)
	case "update_subject":
		result, err = srv.updateSubject(ctx, req)
	case "toggle_topic":
		result, err = srv.toggleTopic(ctx, req)
	case "delete_subject":
		result, err = srv.deleteSubject(ctx, req)
	case "import_outline":
		result, err = srv.importOutline(ctx, req)
	case "get_outline_contract":
		result, err = srv.getOutlineContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func createSubject(t *testing.T, srv *Server, name, text string) subjectSummary {
	t.Helper()
	r := callTool(t, srv, "create_subject", map[string]any{"name": name, "outline": text})
	if r.IsError {
		t.Fatalf("create_subject: %s", resultText(r))
	}
	var s subjectSummary
	if err := json.Unmarshal([]byte(resultText(r)), &s); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	return s
}

func TestCreateAndGetOutline(t *testing.T) {
	srv := testServer(t)
	s := createSubject(t, srv, "Direito", "Constitucional\n- Princípios")
	if s.Items != 2 {
		t.Errorf("items = %d, want 2", s.Items)
	}

	r := callTool(t, srv, "get_outline", map[string]any{"id": s.ID})
	if got := resultText(r); got != "Constitucional\n- Princípios" {
		t.Errorf("outline = %q", got)
	}
}

func TestListSubjectsUsesOwner(t *testing.T) {
	srv := testServer(t)
	createSubject(t, srv, "A", "x")

	r := callTool(t, srv, "list_subjects", map[string]any{})
	var list []subjectSummary
	_ = json.Unmarshal([]byte(resultText(r)), &list)
	if len(list) != 1 || list[0].Name != "A" {
		t.Errorf("default owner list = %+v", list)
	}

	r = callTool(t, srv, "list_subjects", map[string]any{"owner": "u2"})
	list = nil
	_ = json.Unmarshal([]byte(resultText(r)), &list)
	if len(list) != 0 {
		t.Errorf("u2 list = %+v", list)
	}
}

func TestToggleTopic(t *testing.T) {
	srv := testServer(t)
	s := createSubject(t, srv, "X", "A\nB")

	r := callTool(t, srv, "toggle_topic", map[string]any{"id": s.ID, "path": []any{float64(1)}})
	if r.IsError {
		t.Fatalf("toggle_topic: %s", resultText(r))
	}
	var got subjectSummary
	_ = json.Unmarshal([]byte(resultText(r)), &got)
	if got.Percentage != 50 {
		t.Errorf("percentage = %v, want 50", got.Percentage)
	}

	r = callTool(t, srv, "get_outline", map[string]any{"id": s.ID})
	if text := resultText(r); text != "A\nB (lido)" {
		t.Errorf("outline = %q", text)
	}
}

func TestUpdateSubject_StaleRevision(t *testing.T) {
	srv := testServer(t)
	s := createSubject(t, srv, "X", "A")

	r := callTool(t, srv, "update_subject", map[string]any{
		"id": s.ID, "name": "X", "outline": "A\nB", "revision": "stale",
	})
	if !r.IsError || !strings.Contains(resultText(r), "revision") {
		t.Errorf("expected revision error, got %q", resultText(r))
	}

	r = callTool(t, srv, "update_subject", map[string]any{
		"id": s.ID, "name": "Y", "outline": "A (lido)\nB", "revision": s.Revision,
	})
	if r.IsError {
		t.Fatalf("update_subject: %s", resultText(r))
	}
	var got subjectSummary
	_ = json.Unmarshal([]byte(resultText(r)), &got)
	if got.Name != "Y" || got.Done != 1 {
		t.Errorf("updated = %+v", got)
	}
}

func TestDeleteSubject(t *testing.T) {
	srv := testServer(t)
	s := createSubject(t, srv, "X", "A")
	r := callTool(t, srv, "delete_subject", map[string]any{"id": s.ID})
	if r.IsError {
		t.Fatalf("delete_subject: %s", resultText(r))
	}
	r = callTool(t, srv, "get_outline", map[string]any{"id": s.ID})
	if !r.IsError {
		t.Error("expected error for deleted subject")
	}
}

func TestGetOutlineMissing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_outline", map[string]any{"id": "nope"})
	if !r.IsError {
		t.Error("expected error for missing subject")
	}
}

func TestImportOutline_DataURI(t *testing.T) {
	srv := testServer(t)
	uri := "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte("Crase\n- Regras"))
	r := callTool(t, srv, "import_outline", map[string]any{"url": uri, "name": "Português"})
	if r.IsError {
		t.Fatalf("import_outline: %s", resultText(r))
	}
	var got subjectSummary
	_ = json.Unmarshal([]byte(resultText(r)), &got)
	if got.Name != "Português" || got.Items != 2 {
		t.Errorf("imported = %+v", got)
	}
}

func TestImportOutline_RejectsBinary(t *testing.T) {
	srv := testServer(t)
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte{0x89, 'P', 'N', 'G'})
	if r := callTool(t, srv, "import_outline", map[string]any{"url": uri}); !r.IsError {
		t.Error("expected error for image data URI")
	}
}

func TestDecodeDataURI_SizeLimit(t *testing.T) {
	big := strings.Repeat("a", maxOutlineSize+1)
	for _, uri := range []string{
		"data:text/plain," + big,
		"data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte(big)),
	} {
		if _, err := decodeDataURI(uri); err == nil || !strings.Contains(err.Error(), "too large") {
			t.Errorf("decodeDataURI(%.30q...) err = %v, want too large", uri, err)
		}
	}

	data, err := decodeDataURI("data:text/plain,Crase%0A-%20Regras")
	if err != nil {
		t.Fatalf("decodeDataURI: %v", err)
	}
	if string(data) != "Crase\n- Regras" {
		t.Errorf("data = %q, want %q", data, "Crase\n- Regras")
	}
}

func TestImportOutline_BlocksLoopback(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "import_outline", map[string]any{"url": "http://127.0.0.1/x.txt"})
	if !r.IsError || !strings.Contains(resultText(r), "blocked host") {
		t.Errorf("expected blocked host error, got %q", resultText(r))
	}
}

func TestNameFromURL(t *testing.T) {
	if got := nameFromURL("https://example.com/editais/Direito%20Penal.txt"); got != "Direito Penal" {
		t.Errorf("nameFromURL = %q, want %q", got, "Direito Penal")
	}
	if got := nameFromURL("data:text/plain,abc"); !strings.HasPrefix(got, "import-") {
		t.Errorf("nameFromURL(data) = %q", got)
	}
}

func TestOutlineContract(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_outline_contract", map[string]any{})
	if !strings.Contains(resultText(r), "(lido)") {
		t.Error("contract does not describe the done marker")
	}
}
