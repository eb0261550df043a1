package main

import "github.com/dbsmedya/goretain/cmd/goretain/cmd"

func main() {
	cmd.Execute()
}
