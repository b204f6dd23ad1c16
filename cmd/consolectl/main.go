package main

import "adminconsole/cmd/consolectl/cmd"

func main() {
	cmd.Execute()
}
