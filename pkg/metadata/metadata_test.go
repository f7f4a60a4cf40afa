package metadata

import (
	"encoding/json"
	"strings"
	"testing"
)

func sampleBag() DataBag {
	return DataBag{
		Text:           Ptr("hello"),
		Collapsed:      Ptr(true),
		IsMindmap:      Ptr(true),
		Level:          Ptr(2),
		FolderExplorer: NewFolderExplorer(ExplorerLinked, "/a/b", true),
		Extra: map[string]any{
			"owner": "team-x",
			"nested": map[string]any{
				"list": []any{"a", map[string]any{"deep": true}},
			},
		},
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := sampleBag()
	c := orig.Clone()

	if !c.Equal(orig) {
		t.Fatal("clone should equal original")
	}

	*c.Text = "changed"
	c.FolderExplorer.Path = "/elsewhere"
	c.Extra["nested"].(map[string]any)["list"].([]any)[0] = "z"

	if orig.TextOr("") != "hello" {
		t.Error("text pointer shared between clone and original")
	}
	if orig.FolderExplorer.Path != "/a/b" {
		t.Error("folderExplorer shared between clone and original")
	}
	if orig.Extra["nested"].(map[string]any)["list"].([]any)[0] != "a" {
		t.Error("nested extra shared between clone and original")
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b DataBag
		want bool
	}{
		{"Empty", DataBag{}, DataBag{}, true},
		{"NilVsEmptyExtra", DataBag{}, DataBag{Extra: map[string]any{}}, true},
		{"AbsentVsFalse", DataBag{}, DataBag{Collapsed: Ptr(false)}, false},
		{"DifferentText", DataBag{Text: Ptr("a")}, DataBag{Text: Ptr("b")}, false},
		{"Marker", DataBag{ConvertedFrom: "plain"}, DataBag{}, false},
		{"Explorer", DataBag{FolderExplorer: NewFolderExplorer(ExplorerStatic, "/x", false)},
			DataBag{FolderExplorer: NewFolderExplorer(ExplorerStatic, "/x", false)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJSONReencodeIsByteStable(t *testing.T) {
	input := `{"collapsed":true,"custom":{"n":1.50,"tags":["x","y"]},"folderExplorer":{"isFolderExplorer":true,"explorerType":"linked","path":"/a/b","isDirectory":true,"isReadOnly":true},"text":"hi","weight":10}`

	var bag DataBag
	if err := json.Unmarshal([]byte(input), &bag); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := json.Marshal(bag)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != input {
		t.Errorf("re-encode mismatch:\n got %s\nwant %s", out, input)
	}
	if _, ok := bag.Extra["weight"].(json.Number); !ok {
		t.Errorf("extra numbers should decode as json.Number, got %T", bag.Extra["weight"])
	}
}

func TestJSONAbsentFieldsStayAbsent(t *testing.T) {
	var bag DataBag
	if err := json.Unmarshal([]byte(`{"text":"x"}`), &bag); err != nil {
		t.Fatal(err)
	}
	if bag.Collapsed != nil {
		t.Error("collapsed should stay absent")
	}
	if bag.FolderExplorer != nil {
		t.Error("folderExplorer should stay absent")
	}
	out, _ := json.Marshal(bag)
	if strings.Contains(string(out), "collapsed") {
		t.Errorf("absent field was added on encode: %s", out)
	}
}

func TestJSONKeepsMistypedKnownFields(t *testing.T) {
	tests := []struct {
		name  string
		input string
		key   string
	}{
		{"Level", `{"level":"deep"}`, KeyLevel},
		{"FractionalLevel", `{"level":1.5}`, KeyLevel},
		{"NullCollapsed", `{"collapsed":null}`, KeyCollapsed},
		{"TextNumber", `{"text":7}`, KeyText},
		{"EmptyMarker", `{"convertedFrom":""}`, KeyConvertedFrom},
		{"ExplorerString", `{"folderExplorer":"x"}`, KeyFolderExplorer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var bag DataBag
			if err := json.Unmarshal([]byte(tt.input), &bag); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if _, ok := bag.Extra[tt.key]; !ok {
				t.Errorf("%s should be kept in Extra, got %+v", tt.key, bag)
			}
			out, _ := json.Marshal(bag)
			if string(out) != tt.input {
				t.Errorf("got %s, want %s", out, tt.input)
			}
		})
	}
}

func TestJSONSetFieldReplacesOpaqueValue(t *testing.T) {
	var bag DataBag
	if err := json.Unmarshal([]byte(`{"level":"deep"}`), &bag); err != nil {
		t.Fatal(err)
	}
	bag.Level = Ptr(3)
	out, _ := json.Marshal(bag)
	if string(out) != `{"level":3}` {
		t.Errorf("got %s", out)
	}
}

func TestFolderExplorerSparseRoundTrip(t *testing.T) {
	input := `{"folderExplorer":{"isFolderExplorer":true,"explorerType":"linked","path":"/a","icon":"dir","order":2}}`

	var bag DataBag
	if err := json.Unmarshal([]byte(input), &bag); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	fe := bag.FolderExplorer
	if fe == nil || !bag.IsFolderExplorer() || fe.Path != "/a" || fe.IsDirectory || fe.IsReadOnly {
		t.Fatalf("folderExplorer = %+v", fe)
	}
	if fe.Extra["icon"] != "dir" {
		t.Errorf("unknown sub-key lost: %+v", fe.Extra)
	}

	out, _ := json.Marshal(bag)
	if string(out) != input {
		t.Errorf("re-encode mismatch:\n got %s\nwant %s", out, input)
	}

	c := bag.Clone()
	if !c.Equal(bag) {
		t.Error("clone should equal original")
	}
	c.FolderExplorer.Extra["icon"] = "file"
	if fe.Extra["icon"] != "dir" {
		t.Error("explorer extra shared between clone and original")
	}

	// Setting a field that was missing makes it appear.
	c.FolderExplorer.IsDirectory = true
	out, _ = json.Marshal(c)
	if !strings.Contains(string(out), `"isDirectory":true`) {
		t.Errorf("set field not encoded: %s", out)
	}
}

func TestFolderExplorerFullEncoding(t *testing.T) {
	fe := NewFolderExplorer(ExplorerStatic, "/x", false)
	out, _ := json.Marshal(fe)
	want := `{"isFolderExplorer":true,"explorerType":"static","path":"/x","isDirectory":false,"isReadOnly":false}`
	if string(out) != want {
		t.Errorf("got %s, want %s", out, want)
	}
}

func TestExtraCannotShadowKnownKeys(t *testing.T) {
	bag := DataBag{Text: Ptr("real"), Extra: map[string]any{"text": "shadow"}}
	out, _ := json.Marshal(bag)
	if string(out) != `{"text":"real"}` {
		t.Errorf("got %s", out)
	}
}

func TestFolderExplorerDefaults(t *testing.T) {
	linked := NewFolderExplorer(ExplorerLinked, "/a", true)
	if !linked.IsReadOnly {
		t.Error("linked explorers are read-only")
	}
	static := NewFolderExplorer(ExplorerStatic, "/a", true)
	if static.IsReadOnly {
		t.Error("static explorers are writable")
	}
	if !ExplorerLinked.Valid() || ExplorerType("remote").Valid() {
		t.Error("Valid() mismatch")
	}
}

func TestCollapsedIndependentOfExplorer(t *testing.T) {
	bag := DataBag{FolderExplorer: NewFolderExplorer(ExplorerLinked, "/a", true)}
	if bag.IsCollapsed() || bag.Collapsed != nil {
		t.Error("folderExplorer must not imply a collapsed value")
	}
	bag = DataBag{Collapsed: Ptr(true)}
	if bag.IsFolderExplorer() {
		t.Error("collapsed must not imply folderExplorer")
	}
}
