package main

import "github.com/ValentinKolb/gStore/cmd"

func main() {
	cmd.Execute()
}
