package main

import "paydiag/cmd"

func main() {
	cmd.Execute()
}
