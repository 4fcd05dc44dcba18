// Command gavelctl is the client for the gaveld GPU job scheduler
// daemon: it encodes one wire.Request per invocation, sends it over
// the configured unix socket, and prints the reply.
package main

import "github.com/gavelrs/gavel/internal/cli"

func main() {
	cli.Execute()
}
