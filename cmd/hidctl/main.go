// Command hidctl inspects handle encodings and exercises a handle registry
// under a synthetic workload.
package main

func main() {
	execute()
}
