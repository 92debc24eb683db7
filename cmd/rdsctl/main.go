// Command rdsctl is the operator-facing CLI for exercising the RDS cache
// directly, out of process from the filesystem that normally drives it.
// It wraps the coordinator's prepare/load/contains/invalidate surface
// plus a stats readout and a /metrics-serving daemon mode.
package main

func main() {
	Execute()
}
