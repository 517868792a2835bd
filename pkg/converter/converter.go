package converter

import (
	"fmt"
	"math"
	"sort"
	"strings"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/opscart/job-sizer/pkg/allocation"
	"github.com/opscart/job-sizer/pkg/models"
)

const bytesPerMB = 1024 * 1024

// ResourceName maps a tracked resource to its Kubernetes name
func ResourceName(r models.Resource) (corev1.ResourceName, error) {
	switch r {
	case models.ResourceCores:
		return corev1.ResourceCPU, nil
	case models.ResourceMemory:
		return corev1.ResourceMemory, nil
	case models.ResourceDisk:
		return corev1.ResourceEphemeralStorage, nil
	default:
		return "", fmt.Errorf("unknown resource: %s", r)
	}
}

// Quantity rounds value up to a Kubernetes quantity: millicores for cores,
// Mi for memory and disk.
func Quantity(r models.Resource, value float64) (resource.Quantity, error) {
	if value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return resource.Quantity{}, fmt.Errorf("invalid %s value %g", r, value)
	}

	switch r {
	case models.ResourceCores:
		return *resource.NewMilliQuantity(int64(math.Ceil(value*1000)), resource.DecimalSI), nil
	case models.ResourceMemory, models.ResourceDisk:
		return *resource.NewQuantity(int64(math.Ceil(value))*bytesPerMB, resource.BinarySI), nil
	default:
		return resource.Quantity{}, fmt.Errorf("unknown resource: %s", r)
	}
}

// Requests builds the resource requests of category under mode from its
// results. Results that failed are skipped.
func Requests(results []*models.AllocationResult, category string, mode allocation.Mode) (corev1.ResourceList, error) {
	list := corev1.ResourceList{}
	for _, r := range results {
		if r.Category != category || r.Mode != mode || !r.OK() {
			continue
		}

		name, err := ResourceName(r.Resource)
		if err != nil {
			return nil, err
		}
		q, err := Quantity(r.Resource, r.Allocation)
		if err != nil {
			return nil, err
		}
		if q.IsZero() {
			continue
		}
		list[name] = q
	}

	if len(list) == 0 {
		return nil, fmt.Errorf("no %s allocation for category %s", mode, category)
	}
	return list, nil
}

// Command creates the kubectl command applying requests to a workload,
// e.g. target "cronjob/nightly".
func Command(target, namespace string, requests corev1.ResourceList) string {
	if len(requests) == 0 {
		return ""
	}

	names := make([]string, 0, len(requests))
	for name := range requests {
		names = append(names, string(name))
	}
	sort.Strings(names)

	pairs := make([]string, len(names))
	for i, name := range names {
		q := requests[corev1.ResourceName(name)]
		pairs[i] = fmt.Sprintf("%s=%s", name, q.String())
	}

	return fmt.Sprintf(
		"kubectl set resources %s -n %s --requests=%s",
		target,
		namespace,
		strings.Join(pairs, ","),
	)
}
