package sms

import (
	"context"
	"log"
)

// Console is the local/dev sender: it logs the code instead of delivering
// it. Never wire it in a production-configured environment.
type Console struct{}

func NewConsole() *Console {
	return &Console{}
}

func (c *Console) Send(ctx context.Context, phone, code string) (string, error) {
	log.Printf("sms (console): to=%s code=%s", phone, code)
	return "", nil
}
