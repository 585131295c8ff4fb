package chesspresenter

import (
	"strings"
)

// Presenter delivers reply lines without coupling to the transport.
type Presenter struct {
	sendMessage func(target, message string) error
}

func NewPresenter(sendMessage func(target, message string) error) *Presenter {
	return &Presenter{sendMessage: sendMessage}
}

// Lines sends each non-blank line to target in order and stops at the first error.
func (p *Presenter) Lines(target string, lines []string) error {
	if p == nil || p.sendMessage == nil {
		return nil
	}
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := p.sendMessage(target, line); err != nil {
			return err
		}
	}
	return nil
}
