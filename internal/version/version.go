// ABOUTME: Version and product identity constants
// ABOUTME: Reported to the gateway during the hello handshake
package version

const (
	// Version is the client software version.
	Version = "0.1.0"

	// Product is the product name reported to the gateway.
	Product = "Crisisline Voice Client"

	// Manufacturer identifies who built this client.
	Manufacturer = "Crisisline"
)
