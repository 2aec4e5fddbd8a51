// Command onboard runs the onboarding questionnaire in a terminal and
// submits the result to the profile API.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
