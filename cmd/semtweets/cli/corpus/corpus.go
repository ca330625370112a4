// Package corpus reads and writes tweet collections: JSON arrays (the
// format of a raw API dump), JSON lines and plain text, optionally
// zstd-compressed.
package corpus

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Format is a corpus file layout.
type Format int

const (
	// FormatAuto picks the format from the file extension and content.
	FormatAuto Format = iota
	// FormatJSON is a single JSON array of tweet objects.
	FormatJSON
	// FormatJSONL is one tweet object per line.
	FormatJSONL
	// FormatText is one document per line.
	FormatText
)

// ErrUnknownFormat is returned for extensions the loader does not handle.
var ErrUnknownFormat = errors.New("corpus: unknown file format")

// Record is one document of the corpus.
type Record struct {
	ID        string    `json:"id,omitempty"`
	Text      string    `json:"text"`
	Author    string    `json:"author,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// rawTweet accepts both the fields written by this package and the fields
// of a Twitter API tweet object.
type rawTweet struct {
	ID        json.RawMessage `json:"id"`
	IDStr     string          `json:"id_str"`
	Text      string          `json:"text"`
	FullText  string          `json:"full_text"`
	Author    string          `json:"author"`
	CreatedAt string          `json:"created_at"`
	User      *rawTweetAuthor `json:"user"`
}

type rawTweetAuthor struct {
	ScreenName string `json:"screen_name"`
}

func (rt *rawTweet) record() Record {
	r := Record{ID: rt.IDStr, Text: rt.Text, Author: rt.Author}
	if r.ID == "" {
		r.ID = rawID(rt.ID)
	}
	if rt.FullText != "" {
		r.Text = rt.FullText
	}
	if r.Author == "" && rt.User != nil {
		r.Author = rt.User.ScreenName
	}
	r.CreatedAt = parseTimestamp(rt.CreatedAt)
	return r
}

// rawID renders an id that may be a JSON string or a JSON number.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// Load reads the corpus file at path. A ".zst" suffix is decompressed
// transparently; the remaining extension selects the format.
func Load(path string) ([]Record, error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck

	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	records, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("corpus %s: %w", path, err)
	}
	return records, nil
}

// Open opens path for reading, decompressing ".zst" files.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	if !strings.HasSuffix(path, ".zst") {
		return f, nil
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("corpus: create zstd decoder: %w", err)
	}
	return &zstdReadCloser{ReadCloser: dec.IOReadCloser(), file: f}, nil
}

type zstdReadCloser struct {
	io.ReadCloser
	file *os.File
}

func (z *zstdReadCloser) Close() error {
	_ = z.ReadCloser.Close()
	return z.file.Close()
}

// FormatOf maps a file name to its format.
func FormatOf(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSuffix(path, ".zst")))
	switch ext {
	case ".json":
		return FormatAuto, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".txt", ".text":
		return FormatText, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Base(path))
}

// Decode reads records from r. FormatAuto treats input starting with '['
// as a JSON array and anything else as JSON lines (the layout of a
// mongoexport dump). Records without text are dropped.
func Decode(r io.Reader, format Format) ([]Record, error) {
	br := bufio.NewReader(r)
	if format == FormatAuto {
		format = sniff(br)
	}
	switch format {
	case FormatJSON:
		return decodeArray(br)
	case FormatJSONL:
		return decodeLines(br)
	case FormatText:
		return decodeText(br)
	}
	return nil, ErrUnknownFormat
}

func sniff(br *bufio.Reader) Format {
	for {
		b, err := br.Peek(1)
		if err != nil {
			return FormatJSONL
		}
		if b[0] == ' ' || b[0] == '\t' || b[0] == '\r' || b[0] == '\n' {
			_, _ = br.ReadByte()
			continue
		}
		if b[0] == '[' {
			return FormatJSON
		}
		return FormatJSONL
	}
}

func decodeArray(r io.Reader) ([]Record, error) {
	var raws []rawTweet
	if err := json.NewDecoder(r).Decode(&raws); err != nil {
		return nil, fmt.Errorf("decode JSON array: %w", err)
	}
	records := make([]Record, 0, len(raws))
	for i := range raws {
		rec := raws[i].record()
		if strings.TrimSpace(rec.Text) == "" {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func decodeLines(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	// Raw API tweets carry large entity blocks.
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	var records []Record
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var raw rawTweet
		if err := json.Unmarshal(line, &raw); err != nil {
			// Skip malformed lines rather than failing the whole load.
			continue
		}
		rec := raw.record()
		if strings.TrimSpace(rec.Text) == "" {
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan JSONL: %w", err)
	}
	return records, nil
}

func decodeText(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	var records []Record
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		records = append(records, Record{Text: text})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan text: %w", err)
	}
	return records, nil
}

// parseTimestamp accepts RFC 3339 and the Twitter API layout
// ("Wed Aug 27 13:08:45 +0000 2008"). Unparseable input yields zero time.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RubyDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// Texts returns the text of every record, in order.
func Texts(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Text
	}
	return out
}

// DecodeStream reads a sequence of JSON values, each either a tweet object
// or an array of tweet objects, as sent by clients of the collector. Values
// may be separated by any whitespace, so NDJSON works too.
func DecodeStream(r io.Reader) ([]Record, error) {
	dec := json.NewDecoder(r)
	var records []Record
	add := func(raw *rawTweet) {
		rec := raw.record()
		if strings.TrimSpace(rec.Text) != "" {
			records = append(records, rec)
		}
	}
	for {
		var value json.RawMessage
		err := dec.Decode(&value)
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode tweet stream: %w", err)
		}
		value = bytes.TrimSpace(value)
		if len(value) > 0 && value[0] == '[' {
			var raws []rawTweet
			if err := json.Unmarshal(value, &raws); err != nil {
				return nil, fmt.Errorf("decode tweet array: %w", err)
			}
			for i := range raws {
				add(&raws[i])
			}
			continue
		}
		var raw rawTweet
		if err := json.Unmarshal(value, &raw); err != nil {
			return nil, fmt.Errorf("decode tweet: %w", err)
		}
		add(&raw)
	}
}
