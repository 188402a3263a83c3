package main

import "github.com/oshokin/alert-relay/cmd/alert-watcher/cmd"

func main() {
	cmd.Execute()
}
