//go:build !tinygo

package console

import (
	"io"

	"github.com/chzyer/readline"
)

// Readline is the interactive front-end for a host TTY.
type Readline struct {
	rl *readline.Instance
}

func NewReadline(prompt string) (*Readline, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}
	return &Readline{rl: rl}, nil
}

// ReadLine turns ^C into an empty line; only EOF ends the session.
func (r *Readline) ReadLine() (string, error) {
	line, err := r.rl.Readline()
	if err == readline.ErrInterrupt {
		return "", nil
	}
	return line, err
}

// Stdout coordinates output with the prompt.
func (r *Readline) Stdout() io.Writer { return r.rl.Stdout() }

func (r *Readline) Close() error { return r.rl.Close() }
