package main

import (
	"example.com/backstage/services/scheduler/cmd"
)

func main() {
	cmd.Execute()
}
