package main

import (
	"context"
	"sync"
)

const pathPrompt = "path> "

// prompter turns the next input line into the answer of a pending
// question. The REPL offers every line to route first.
type prompter struct {
	ui screen

	mu      sync.Mutex
	pending chan string
}

func newPrompter(ui screen) *prompter {
	return &prompter{ui: ui}
}

// Ask shows question and waits for the next input line. Only one question
// is pending at a time; a second Ask replaces the first.
func (p *prompter) Ask(ctx context.Context, question string) (string, error) {
	ch := make(chan string, 1)
	p.mu.Lock()
	p.pending = ch
	p.mu.Unlock()

	p.ui.PrintHint(question)
	p.ui.SetPrompt(pathPrompt)
	defer func() {
		p.mu.Lock()
		if p.pending == ch {
			p.pending = nil
		}
		p.mu.Unlock()
		p.ui.SetPrompt("")
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case answer := <-ch:
		return answer, nil
	}
}

// route hands line to a pending question and reports whether it did.
func (p *prompter) route(line string) bool {
	p.mu.Lock()
	ch := p.pending
	p.pending = nil
	p.mu.Unlock()

	if ch == nil {
		return false
	}
	ch <- line
	return true
}
