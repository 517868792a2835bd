package scanner

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"

	"github.com/opscart/job-sizer/pkg/datasource"
	"github.com/opscart/job-sizer/pkg/models"
)

// DefaultCategoryLabel names the Job label that assigns a category.
const DefaultCategoryLabel = "job-sizer.io/category"

// Options controls which Jobs are scanned.
type Options struct {
	Namespace     string
	AllNamespaces bool
	CategoryLabel string
	Resources     []models.Resource
	// Jobs that completed before now-Lookback are ignored; zero keeps all.
	Lookback time.Duration
}

// Scanner turns completed Kubernetes Jobs into observations: wall time from
// the Job status, peak usage of its pods from a PeakSource.
type Scanner struct {
	clientset kubernetes.Interface
	peaks     datasource.PeakSource
	opts      Options
	log       logrus.FieldLogger
	now       func() time.Time
}

// NewClientset connects with kubeconfig, or ~/.kube/config when empty.
func NewClientset(kubeconfig string) (kubernetes.Interface, error) {
	if kubeconfig == "" {
		if home := homedir.HomeDir(); home != "" {
			kubeconfig = filepath.Join(home, ".kube", "config")
		}
	}

	config, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build config: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}
	return clientset, nil
}

func New(clientset kubernetes.Interface, peaks datasource.PeakSource, opts Options, log logrus.FieldLogger) *Scanner {
	if opts.CategoryLabel == "" {
		opts.CategoryLabel = DefaultCategoryLabel
	}
	if len(opts.Resources) == 0 {
		opts.Resources = models.DefaultResources()
	}
	if opts.Namespace == "" {
		opts.Namespace = metav1.NamespaceDefault
	}
	return &Scanner{
		clientset: clientset,
		peaks:     peaks,
		opts:      opts,
		log:       log,
		now:       time.Now,
	}
}

func (s *Scanner) Name() string {
	return "kubernetes"
}

// Observations scans the configured namespaces. A namespace that cannot be
// listed is skipped with a warning.
func (s *Scanner) Observations(ctx context.Context) ([]models.Observation, error) {
	version, err := s.clientset.Discovery().ServerVersion()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to cluster: %w", err)
	}
	s.log.Infof("Connected to cluster (version: %s)", version.GitVersion)

	namespaces := []string{s.opts.Namespace}
	if s.opts.AllNamespaces {
		nsList, err := s.clientset.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to list namespaces: %w", err)
		}
		namespaces = namespaces[:0]
		for _, ns := range nsList.Items {
			namespaces = append(namespaces, ns.Name)
		}
		sort.Strings(namespaces)
		s.log.Infof("Scanning %d namespaces", len(namespaces))
	} else {
		s.log.Infof("Scanning namespace: %s", s.opts.Namespace)
	}

	var observations []models.Observation
	for _, ns := range namespaces {
		obs, err := s.scanNamespace(ctx, ns)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.log.WithError(err).Warnf("Error scanning namespace %s", ns)
			continue
		}
		observations = append(observations, obs...)
	}
	return observations, nil
}

func (s *Scanner) scanNamespace(ctx context.Context, namespace string) ([]models.Observation, error) {
	jobs, err := s.clientset.BatchV1().Jobs(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	items := jobs.Items
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })

	var observations []models.Observation
	for i := range items {
		job := &items[i]
		if !s.completedInWindow(job) {
			continue
		}

		obs, err := s.observe(ctx, job)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.log.WithError(err).Warnf("Skipping job %s/%s", namespace, job.Name)
			continue
		}
		observations = append(observations, *obs)
	}

	s.log.Debugf("Namespace %s: %d completed jobs observed", namespace, len(observations))
	return observations, nil
}

func (s *Scanner) completedInWindow(job *batchv1.Job) bool {
	if job.Status.CompletionTime == nil || job.Status.StartTime == nil {
		return false
	}
	if s.opts.Lookback > 0 && job.Status.CompletionTime.Time.Before(s.now().Add(-s.opts.Lookback)) {
		return false
	}
	return true
}

func (s *Scanner) observe(ctx context.Context, job *batchv1.Job) (*models.Observation, error) {
	start := job.Status.StartTime.Time
	end := job.Status.CompletionTime.Time

	// Status timestamps have second precision.
	wallTime := end.Sub(start).Seconds()
	if wallTime < 1 {
		wallTime = 1
	}

	pods, err := s.clientset.CoreV1().Pods(job.Namespace).List(ctx, metav1.ListOptions{
		LabelSelector: "job-name=" + job.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods: %w", err)
	}
	if len(pods.Items) == 0 {
		return nil, fmt.Errorf("no pods left for job")
	}

	obs := &models.Observation{
		Category:   Category(job, s.opts.CategoryLabel),
		Namespace:  job.Namespace,
		Job:        job.Name,
		WallTime:   wallTime,
		Usage:      make(map[models.Resource]float64, len(s.opts.Resources)),
		FinishedAt: end,
	}

	window := end.Sub(start) + time.Minute
	for _, resource := range s.opts.Resources {
		peak, err := s.jobPeak(ctx, pods.Items, resource, end, window)
		if err != nil {
			return nil, err
		}
		obs.Usage[resource] = peak
	}
	return obs, nil
}

// jobPeak is the largest peak among the pods of a job.
func (s *Scanner) jobPeak(ctx context.Context, pods []corev1.Pod, resource models.Resource, end time.Time, window time.Duration) (float64, error) {
	peak := 0.0
	found := false
	var lastErr error
	for _, pod := range pods {
		v, err := s.peaks.PeakUsage(ctx, pod.Namespace, pod.Name, resource, end, window)
		if err != nil {
			lastErr = err
			continue
		}
		found = true
		if v > peak {
			peak = v
		}
	}
	if !found {
		return 0, lastErr
	}
	return peak, nil
}

// Category assigns a Job to a category: the value of label, else the name
// of the owning CronJob, else the Job name.
func Category(job *batchv1.Job, label string) string {
	if c := job.Labels[label]; c != "" {
		return c
	}
	for _, owner := range job.OwnerReferences {
		if owner.Kind == "CronJob" {
			return owner.Name
		}
	}
	return job.Name
}
