package main

import "github.com/webdavcrawl/batchdav/cmd"

func main() {
	cmd.Execute()
}
