package main

import (
	"fmt"
	"os"

	"github.com/guardiao-iam/guardiao/seed"
)

func main() {
	if err := seed.RunFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("seed completed successfully")
}
