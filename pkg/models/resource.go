package models

import "fmt"

// Resource identifies a tracked resource column.
type Resource string

const (
	ResourceCores  Resource = "cores"
	ResourceMemory Resource = "memory" // MB
	ResourceDisk   Resource = "disk"   // MB
)

// DefaultResources returns the resources tracked when none are configured,
// in report order.
func DefaultResources() []Resource {
	return []Resource{ResourceMemory, ResourceDisk, ResourceCores}
}

// ParseResource validates a resource name.
func ParseResource(s string) (Resource, error) {
	switch r := Resource(s); r {
	case ResourceCores, ResourceMemory, ResourceDisk:
		return r, nil
	default:
		return "", fmt.Errorf("unknown resource: %s", s)
	}
}

// Unit returns the unit values of this resource are expressed in.
func (r Resource) Unit() string {
	switch r {
	case ResourceCores:
		return "cores"
	case ResourceMemory, ResourceDisk:
		return "MB"
	default:
		return ""
	}
}
