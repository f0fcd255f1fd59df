package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

// row is one printable result.
type row interface {
	// columns renders the row for text output.
	columns() []string
}

// flatten keeps one row per text line.
var flatten = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ")

// printer writes rows in the configured format. Print is safe for
// concurrent use.
type printer struct {
	mu     sync.Mutex
	format string
	w      io.Writer
	json   *json.Encoder
	yaml   *yaml.Encoder
}

func newPrinter(format string, w io.Writer) (*printer, error) {
	p := &printer{format: format, w: w}
	switch format {
	case "text":
	case "json":
		p.json = json.NewEncoder(w)
		p.json.SetEscapeHTML(false)
	case "yaml":
		p.yaml = yaml.NewEncoder(w)
		p.yaml.SetIndent(2)
	default:
		return nil, usagef("unknown output format %q", format)
	}
	return p, nil
}

// Print writes r as a tab-separated line, a JSON line or a YAML document.
func (p *printer) Print(r row) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.format {
	case "json":
		return p.json.Encode(r)
	case "yaml":
		return p.yaml.Encode(r)
	default:
		cols := r.columns()
		for i, c := range cols {
			cols[i] = flatten.Replace(c)
		}
		_, err := fmt.Fprintln(p.w, strings.Join(cols, "\t"))
		return err
	}
}

// Close flushes the YAML stream.
func (p *printer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.yaml != nil {
		return p.yaml.Close()
	}
	return nil
}
