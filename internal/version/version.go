// ABOUTME: Build identity for the cockpit simulator
// ABOUTME: Shown in the HUD header, logs and feed hello messages
package version

const (
	// Version is the release version
	Version = "0.3.0"
	// Product is the product name
	Product = "RC Cockpit Simulator"
	// Manufacturer identifies the builder
	Manufacturer = "mmstac"
)

// String returns "Product Version"
func String() string {
	return Product + " " + Version
}
