package main

import (
	"github.com/lancerbots/minibot.go/pkg/botsh"
)

func main() {
	botsh.Main()
}
