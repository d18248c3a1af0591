package main

import (
	"recipes-backend/cmd/recipes-cli/commands"
	"recipes-backend/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
