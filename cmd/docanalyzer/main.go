// Command docanalyzer summarizes documents and answers questions about them.
//
// Usage:
//
//	docanalyzer serve                               # Start the HTTP API and UI
//	docanalyzer summarize report.pdf                # Print a summary
//	docanalyzer ask -q "Who?" --file report.pdf     # Answer from a document
//	docanalyzer ask -q "Who?" --text "..."          # Answer from inline text
//	docanalyzer watch                               # Summarize files dropped into the inbox
package main

import "github.com/0xcro3dile/docanalyzer-go/cmd/docanalyzer/cmd"

// Set by the release build via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cmd.Version = version
	cmd.Execute()
}
