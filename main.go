package main

import "cardiag/cmd"

func main() {
	cmd.Execute()
}
