// Command carpark runs the parking session ledger.
package main

import "github.com/xraph/carpark/cmd/carpark/cmd"

func main() {
	cmd.Execute()
}
