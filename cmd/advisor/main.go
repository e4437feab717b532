// Command advisor is the terminal front-end: one-off forecasts, batch
// advisories and the bookkeeping of bills, expenses and balance snapshots.
package main

func main() {
	Execute()
}
