// Command tabula views, searches, exports and summarizes tabular data from
// JSONL files and SQLite databases.
package main

import "github.com/mesh-intelligence/tabula/internal/cli"

func main() {
	cli.Execute()
}
