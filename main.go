package main

import "github.com/udsonbraga/safelady/cmd"

func main() {
	cmd.Execute()
}
