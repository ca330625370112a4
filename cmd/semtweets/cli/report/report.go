// Package report renders clustering results for people and for tools.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/semtweets/cli/cmd/semtweets/cli/pipeline"
)

// Format selects the report encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ErrUnknownFormat is returned for a format other than text or json.
var ErrUnknownFormat = errors.New("unknown report format")

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

const barWidth = 150

var bar = strings.Repeat("*", barWidth)

// Corpus gives the report access to the clustered documents.
type Corpus struct {
	Texts []string
	IDs   []string // optional; parallel to Texts
}

func (c Corpus) text(i int) string {
	if i < 0 || i >= len(c.Texts) {
		return ""
	}
	return c.Texts[i]
}

func (c Corpus) id(i int) string {
	if i < 0 || i >= len(c.IDs) {
		return ""
	}
	return c.IDs[i]
}

// Write renders res in the given format.
func Write(w io.Writer, format Format, res *pipeline.Result, corpus Corpus) error {
	switch format {
	case FormatText:
		return writeText(w, res, corpus)
	case FormatJSON:
		return writeJSON(w, res, corpus)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// WriteFile replaces path with the rendered report.
func WriteFile(path string, format Format, res *pipeline.Result, corpus Corpus) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := Write(f, format, res, corpus); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	return nil
}

func writeText(w io.Writer, res *pipeline.Result, corpus Corpus) error {
	var b strings.Builder
	b.WriteString(bar)
	b.WriteByte('\n')
	for _, t := range res.Topics {
		fmt.Fprintf(&b, "* Cluster: %d. Total tweets: %d\n", t.ID, len(t.Documents))
		if len(t.Keywords) > 0 {
			fmt.Fprintf(&b, "*   keywords: %s\n", strings.Join(t.Keywords, ", "))
		}
		for _, doc := range t.Documents {
			fmt.Fprintf(&b, "*   tweet: %s\n", oneLine(corpus.text(doc)))
		}
		b.WriteString(bar)
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// oneLine keeps multi-line tweets on their report line.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

type jsonReport struct {
	Seed           int64         `json:"seed"`
	Iterations     int           `json:"iterations"`
	Converged      bool          `json:"converged"`
	Documents      int           `json:"documents"`
	Terms          int           `json:"terms"`
	Degenerate     []int         `json:"degenerate,omitempty"`
	SingularValues []float64     `json:"singular_values,omitempty"`
	ElapsedMs      int64         `json:"elapsed_ms"`
	Clusters       []jsonCluster `json:"clusters"`
}

type jsonCluster struct {
	ID       int         `json:"id"`
	Tag      int         `json:"tag"`
	Size     int         `json:"size"`
	Keywords []string    `json:"keywords,omitempty"`
	Tweets   []jsonTweet `json:"tweets"`
}

type jsonTweet struct {
	Index int    `json:"index"`
	ID    string `json:"id,omitempty"`
	Text  string `json:"text"`
}

// Build returns the JSON document for res. Exported for the collector,
// which serves it directly.
func Build(res *pipeline.Result, corpus Corpus) any {
	out := jsonReport{
		Seed:           res.Seed,
		Iterations:     res.Iterations,
		Converged:      res.Converged,
		Documents:      res.Documents,
		Terms:          res.Terms,
		Degenerate:     res.Degenerate,
		SingularValues: res.SingularValues,
		ElapsedMs:      res.Elapsed.Milliseconds(),
		Clusters:       make([]jsonCluster, len(res.Topics)),
	}
	for i, t := range res.Topics {
		c := jsonCluster{
			ID:       t.ID,
			Tag:      t.Tag,
			Size:     len(t.Documents),
			Keywords: t.Keywords,
			Tweets:   make([]jsonTweet, len(t.Documents)),
		}
		for j, doc := range t.Documents {
			c.Tweets[j] = jsonTweet{Index: doc, ID: corpus.id(doc), Text: corpus.text(doc)}
		}
		out.Clusters[i] = c
	}
	return out
}

func writeJSON(w io.Writer, res *pipeline.Result, corpus Corpus) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Build(res, corpus)); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
