// Package parser reads legacy server configuration files. A ParseFile is a
// one-shot asynchronous job: Start launches it, Wait blocks until it
// finishes, and the accumulated diagnostics plus any recognized
// configuration blocks are available afterwards.
package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ParseFile parses one legacy .cfg file. The zero value is not usable; use
// New. Start may be called at most once.
type ParseFile struct {
	path    string
	started bool
	done    chan struct{}

	// written by the parse goroutine before done is closed
	errs   []string
	blocks []*yaml.Node
}

// New creates a parse job for the given file path.
func New(path string) *ParseFile {
	return &ParseFile{
		path: path,
		done: make(chan struct{}),
	}
}

// Start launches the parse job. Calling Start twice is a no-op.
func (p *ParseFile) Start() {
	if p.started {
		return
	}
	p.started = true
	go func() {
		defer close(p.done)
		p.run()
	}()
}

// Wait blocks until the job completes or the context is cancelled. A job
// that was never started completes immediately with an error.
func (p *ParseFile) Wait(ctx context.Context) error {
	if !p.started {
		return errors.New("parse job was not started")
	}
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Errors returns the diagnostics accumulated during the parse, in order.
// Empty on a clean parse. Only valid after Wait returns nil.
func (p *ParseFile) Errors() []string {
	return p.errs
}

// ConfigBlocks returns the server configuration blocks found in the file, in
// document order. Only valid after Wait returns nil.
func (p *ParseFile) ConfigBlocks() []*yaml.Node {
	return p.blocks
}

// run does the actual work on the parse goroutine. Every problem becomes a
// diagnostic rather than a panic or a partial result.
func (p *ParseFile) run() {
	f, err := os.Open(p.path)
	if err != nil {
		p.errs = append(p.errs, fmt.Sprintf("cannot open %s: %v", p.path, err))
		return
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	for {
		var doc yaml.Node
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			// The decoder cannot resume after a syntax error.
			p.errs = append(p.errs, fmt.Sprintf("%s: %v", p.path, err))
			return
		}

		block := unwrapDocument(&doc)
		if block == nil || block.Kind != yaml.MappingNode {
			p.errs = append(p.errs, fmt.Sprintf("%s: document is not a configuration block", p.path))
			continue
		}
		p.blocks = append(p.blocks, block)
	}
}

// unwrapDocument returns the content node of a document node.
func unwrapDocument(doc *yaml.Node) *yaml.Node {
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		return doc.Content[0]
	}
	return doc
}
