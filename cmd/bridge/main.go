// Command superchat-bridge turns settled crypto payments into live chat
// superchats.
//
//	@title			Superchat Bridge API
//	@version		1.0
//	@description	Turns settled crypto payments into live chat superchats, exactly once per payment.
//	@BasePath		/
package main

import "github.com/tbourn/go-superchat-bridge/internal/cli"

func main() {
	cli.Execute()
}
