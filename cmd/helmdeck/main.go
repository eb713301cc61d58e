// Command helmdeck manages Helm releases through the helmdeck backend.
package main

import "github.com/cameronsjo/helmdeck/internal/cmd"

func main() {
	cmd.Execute()
}
