package main

import "github.com/ValentinKolb/sDB/cmd"

func main() {
	cmd.Execute()
}
