package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_JSONArray(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "corpus.json", `[
		{"id": 1234567890, "text": "first tweet", "user": {"screen_name": "alice"},
		 "created_at": "Wed Aug 27 13:08:45 +0000 2008"},
		{"id_str": "42", "text": "second tweet"},
		{"text": "   "}
	]`)
	records, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records: got %d, want 2", len(records))
	}
	if records[0].ID != "1234567890" || records[0].Author != "alice" {
		t.Errorf("record 0: %+v", records[0])
	}
	want := time.Date(2008, 8, 27, 13, 8, 45, 0, time.UTC)
	if !records[0].CreatedAt.Equal(want) {
		t.Errorf("CreatedAt: got %v, want %v", records[0].CreatedAt, want)
	}
	if records[1].ID != "42" || records[1].Text != "second tweet" {
		t.Errorf("record 1: %+v", records[1])
	}
}

func TestLoad_JSONLinesInJSONFile(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "dump.json", "{\"text\": \"one\"}\nnot json\n\n{\"full_text\": \"two\", \"text\": \"tw\"}\n")
	records, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := Texts(records); !reflect.DeepEqual(got, []string{"one", "two"}) {
		t.Errorf("texts: got %v", got)
	}
}

func TestLoad_Text(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "tweets.txt", "coffee time\n\n  rainy day  \n")
	records, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := Texts(records); !reflect.DeepEqual(got, []string{"coffee time", "rainy day"}) {
		t.Errorf("texts: got %v", got)
	}
}

func TestLoad_UnknownFormat(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "corpus.csv", "a,b\n")
	if _, err := Load(path); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestLoad_Missing(t *testing.T) {
	t.Parallel()
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestExport_ZstdRoundTrip(t *testing.T) {
	t.Parallel()
	records := []Record{
		{ID: "01", Text: "coffee and espresso", Author: "alice",
			CreatedAt: time.Date(2026, 2, 25, 10, 30, 0, 0, time.UTC)},
		{ID: "02", Text: "storm warning tonight"},
	}
	path := filepath.Join(t.TempDir(), "corpus.jsonl.zst")
	if err := Export(path, records); err != nil {
		t.Fatalf("Export: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "espresso") {
		t.Error("export should be compressed")
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, records) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, records)
	}
}

func TestExport_PlainJSONL(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "corpus.jsonl")
	if err := Export(path, []Record{{Text: "hello"}}); err != nil {
		t.Fatalf("Export: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(raw)) != `{"text":"hello"}` {
		t.Errorf("unexpected content: %q", raw)
	}
}

func TestSample(t *testing.T) {
	t.Parallel()
	records := make([]Record, 10)
	for i := range records {
		records[i] = Record{ID: string(rune('a' + i)), Text: "t"}
	}
	if got := Sample(records, 0, 1); len(got) != 10 {
		t.Errorf("n=0 should keep everything, got %d", len(got))
	}
	if got := Sample(records, 20, 1); len(got) != 10 {
		t.Errorf("n>len should keep everything, got %d", len(got))
	}

	a := Sample(records, 4, 9)
	b := Sample(records, 4, 9)
	if len(a) != 4 || !reflect.DeepEqual(a, b) {
		t.Errorf("seeded samples differ: %v vs %v", a, b)
	}
	for i := 1; i < len(a); i++ {
		if a[i].ID <= a[i-1].ID {
			t.Errorf("sample not in corpus order: %v", a)
		}
	}
}

func TestDecodeStream(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		body  string
		texts []string
	}{
		{"object", `{"text": "one"}`, []string{"one"}},
		{"pretty object", "{\n  \"text\": \"one\"\n}", []string{"one"}},
		{"array", `[{"text": "one"}, {"text": ""}, {"full_text": "two"}]`, []string{"one", "two"}},
		{"ndjson", "{\"text\": \"one\"}\n{\"text\": \"two\"}\n", []string{"one", "two"}},
		{"mixed", `{"text": "one"} [{"text": "two"}]`, []string{"one", "two"}},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			records, err := DecodeStream(strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("DecodeStream: %v", err)
			}
			got := Texts(records)
			if len(got) != len(tt.texts) {
				t.Fatalf("got %v, want %v", got, tt.texts)
			}
			for i := range got {
				if got[i] != tt.texts[i] {
					t.Errorf("text %d = %q, want %q", i, got[i], tt.texts[i])
				}
			}
		})
	}
}

func TestDecodeStream_Malformed(t *testing.T) {
	t.Parallel()

	if _, err := DecodeStream(strings.NewReader(`{"text": "one"} {"text":`)); err == nil {
		t.Fatal("expected error for truncated stream")
	}
	if _, err := DecodeStream(strings.NewReader(`"just a string"`)); err == nil {
		t.Fatal("expected error for non-object value")
	}
}
