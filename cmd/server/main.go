package main

import (
	"github.com/eleven-am/voice-scribe/internal/bootstrap"
)

func main() {
	bootstrap.Run()
}
