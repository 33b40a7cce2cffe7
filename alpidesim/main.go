// Command alpidesim simulates the readout chain of ALPIDE pixel detectors.
package main

import "github.com/sarchlab/alpidesim/alpidesim/cmd"

func main() {
	cmd.Execute()
}
