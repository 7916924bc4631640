// Command modbus-probe connects to a running plcsim instance and
// exercises a battery of coil and register reads/writes, printing a
// pass/fail line per check. It is a diagnostic tool, not a test
// harness: exit status is nonzero if any check failed.
package main

import (
	"fmt"
	"os"

	"plcsim/internal/probe"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: modbus-probe <host:port>")
		os.Exit(2)
	}

	results := probe.Run(os.Args[1])

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Printf("FAIL  %-28s %v\n", r.Name, r.Err)
			continue
		}
		fmt.Printf("PASS  %-28s\n", r.Name)
	}

	if failed > 0 {
		fmt.Printf("%d/%d checks failed\n", failed, len(results))
		os.Exit(1)
	}
	fmt.Printf("all %d checks passed\n", len(results))
}
