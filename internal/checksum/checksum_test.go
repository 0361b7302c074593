package checksum

import "testing"

func TestSum_Known(t *testing.T) {
	// sha256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Sum([]byte("abc")); got != want {
		t.Errorf("Sum = %q, want %q", got, want)
	}
}

func TestOf_ChangesWithContent(t *testing.T) {
	a := Of(map[string]any{"name": "Direito", "done": false})
	b := Of(map[string]any{"name": "Direito", "done": true})
	if a == "" || b == "" {
		t.Fatal("empty revision")
	}
	if a == b {
		t.Error("revision should change with content")
	}
	if a != Of(map[string]any{"done": false, "name": "Direito"}) {
		t.Error("revision should be stable for equal content")
	}
	if Of(make(chan int)) != "" {
		t.Error("unencodable value should yield empty revision")
	}
}
