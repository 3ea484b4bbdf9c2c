package main

import "github.com/siteops/opsflow-gin/cmd"

func main() {
	cmd.Execute()
}
