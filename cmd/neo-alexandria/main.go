// Command neo-alexandria is the CLI entry point for ingesting,
// searching, browsing the knowledge graph, and recommending resources
// from a personal library.
package main

import "github.com/ram-tewari/neo-alexandria-sub001/cmd/neo-alexandria/cmd"

func main() {
	cmd.Execute()
}
