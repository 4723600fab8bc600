package main

import (
	"os"

	"github.com/zephyr-tools/mcumgr-client/cmd/mcumgr-client/commands"
)

// Build-time version injected via ldflags
var version = "dev"

func main() {
	commands.Version = version
	os.Exit(commands.Execute())
}
