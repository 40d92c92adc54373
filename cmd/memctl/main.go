// Command memctl exercises a memkit heap with seeded workloads and reports
// usage, fragmentation and integrity.
package main

func main() {
	execute()
}
