//go:build e2e
// +build e2e

package e2e

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/opscart/job-sizer/pkg/reporter"
	"github.com/opscart/job-sizer/pkg/scanner"
)

func buildCLI(t *testing.T) string {
	t.Helper()

	bin := filepath.Join(t.TempDir(), "job-sizer")
	t.Log("Building job-sizer...")
	build := exec.Command("go", "build", "-o", bin, "../../cmd/job-sizer")
	if output, err := build.CombinedOutput(); err != nil {
		t.Fatalf("Build failed: %v\n%s", err, output)
	}
	t.Log("✓ Built CLI")
	return bin
}

func TestAnalyzeCLIExecution(t *testing.T) {
	bin := buildCLI(t)

	input := filepath.Join(t.TempDir(), "jobs.csv")
	csv := "category,wall_time,memory,disk,cores\n" +
		strings.Repeat("render,60,120,10,1\n", 9) +
		"render,60,1000,10,1\n"
	if err := os.WriteFile(input, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := exec.Command(bin, "analyze", input, "-o", "json")
	cmd.Env = append(os.Environ(), "STORAGE_ENABLED=false")
	output, err := cmd.Output()
	if err != nil {
		t.Fatalf("CLI failed: %v", err)
	}

	var report reporter.Report
	if err := json.Unmarshal(output, &report); err != nil {
		t.Fatalf("Output is not a JSON report: %v\n%s", err, output)
	}
	if len(report.Results) == 0 {
		t.Fatal("Report has no results")
	}
	t.Logf("✓ %d result(s) for %s", len(report.Results), report.Source)
}

// The scan tests need a cluster with completed Jobs in
// JOB_SIZER_E2E_NAMESPACE and Prometheus at PROMETHEUS_URL.
func e2eNamespace(t *testing.T) string {
	t.Helper()
	namespace := os.Getenv("JOB_SIZER_E2E_NAMESPACE")
	if namespace == "" {
		t.Skip("JOB_SIZER_E2E_NAMESPACE not set")
	}
	return namespace
}

func TestRealClusterJobs(t *testing.T) {
	namespace := e2eNamespace(t)

	clientset, err := scanner.NewClientset("")
	if err != nil {
		t.Fatalf("Failed to create clientset: %v", err)
	}

	jobs, err := clientset.BatchV1().Jobs(namespace).List(context.Background(), metav1.ListOptions{})
	if err != nil {
		t.Fatalf("Failed to list jobs: %v", err)
	}
	if len(jobs.Items) == 0 {
		t.Fatalf("No jobs found in %s", namespace)
	}

	t.Logf("✓ Found %d job(s):", len(jobs.Items))
	for _, job := range jobs.Items {
		t.Logf("  - %s (succeeded: %d)", job.Name, job.Status.Succeeded)
	}
}

func TestScanCLIExecution(t *testing.T) {
	namespace := e2eNamespace(t)
	bin := buildCLI(t)

	t.Log("Running job-sizer scan against REAL cluster...")
	cmd := exec.Command(bin, "scan", "-n", namespace, "--mode", "throughput")
	output, err := cmd.CombinedOutput()

	outputStr := string(output)
	t.Logf("Output:\n%s", outputStr)

	if err != nil {
		t.Fatalf("CLI failed: %v", err)
	}
	if !strings.Contains(outputStr, "throughput") {
		t.Error("Output should contain throughput recommendations")
	}

	t.Log("✓ Successfully scanned real cluster!")
}
