// Package zone provides TimeZone, a lightweight identity that resolves to
// zone rules through a ports.Registry.
package zone
