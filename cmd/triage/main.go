package main

import "github.com/mvp-joe/project-triage/internal/cli"

func main() {
	cli.Execute()
}
